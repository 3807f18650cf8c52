package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	listingdomain "github.com/smallbiznis/horecaalert/internal/listing/domain"
	searchalertdomain "github.com/smallbiznis/horecaalert/internal/searchalert/domain"
	userdomain "github.com/smallbiznis/horecaalert/internal/user/domain"
	"gorm.io/gorm"
)

const (
	demoUserEmail = "demo@horecaalert.local"
	demoUserName  = "Demo Ondernemer"
	demoAlertName = "Amsterdam horeca tot € 3.500"
)

// EnsureDemoData seeds a demo user, one INSTANT alert and two freshly
// published listings, one of which matches. Existing rows are left untouched.
func EnsureDemoData(db *gorm.DB, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now = now.UTC()
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureDemoUserTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		if err := ensureDemoAlertTx(ctx, tx, node, user.ID, now); err != nil {
			return err
		}
		return ensureDemoListingsTx(ctx, tx, now)
	})
}

func ensureDemoUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("email = ?", demoUserEmail).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	user = userdomain.User{
		ID:        node.Generate(),
		Name:      demoUserName,
		Email:     strings.ToLower(demoUserEmail),
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensureDemoAlertTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID snowflake.ID, now time.Time) error {
	var existing searchalertdomain.SearchAlert
	err := tx.WithContext(ctx).Where("user_id = ? AND name = ?", userID, demoAlertName).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	maxRent := int64(350000)
	criteria, err := searchalertdomain.NewCriteria(
		[]string{"Amsterdam"},
		nil,
		[]searchalertdomain.PropertyType{searchalertdomain.PropertyTypeCafe, searchalertdomain.PropertyTypeBar},
		nil, &maxRent, nil, nil,
	)
	if err != nil {
		return err
	}
	alert := searchalertdomain.SearchAlert{
		ID:        node.Generate(),
		UserID:    userID,
		Name:      demoAlertName,
		Frequency: searchalertdomain.FrequencyInstant,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	alert.ApplyCriteria(criteria)
	return tx.WithContext(ctx).Create(&alert).Error
}

func ensureDemoListingsTx(ctx context.Context, tx *gorm.DB, now time.Time) error {
	published := now.Add(-30 * time.Minute)
	rent := int64(275000)
	sale := int64(89500000)
	surface := int64(140)
	listings := []listingdomain.Listing{
		{
			ID:           "demo-ams-cafe",
			Title:        "Karakteristiek eetcafé in de Jordaan",
			City:         "Amsterdam",
			Province:     "Noord-Holland",
			PropertyType: string(searchalertdomain.PropertyTypeCafe),
			Status:       listingdomain.StatusActive,
			PriceType:    listingdomain.PriceTypeRent,
			RentPrice:    &rent,
			SurfaceTotal: &surface,
			PublishedAt:  &published,
			CreatedAt:    published,
		},
		{
			ID:           "demo-utr-hotel",
			Title:        "Boutique hotel aan de Oudegracht",
			City:         "Utrecht",
			Province:     "Utrecht",
			PropertyType: string(searchalertdomain.PropertyTypeHotel),
			Status:       listingdomain.StatusActive,
			PriceType:    listingdomain.PriceTypeSale,
			SalePrice:    &sale,
			PublishedAt:  &published,
			CreatedAt:    published,
		},
	}
	for i := range listings {
		l := listings[i]
		l.Slug = l.PathSlug()
		err := tx.WithContext(ctx).Where("id = ?", l.ID).FirstOrCreate(&l).Error
		if err != nil {
			return err
		}
	}
	return nil
}
