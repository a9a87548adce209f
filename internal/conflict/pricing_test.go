package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aquaflow/swimschool-api/internal/models"
)

func TestTierFor(t *testing.T) {
	assert.Equal(t, models.TierSmall, TierFor(1))
	assert.Equal(t, models.TierSmall, TierFor(4))
	assert.Equal(t, models.TierLarge, TierFor(5))
	assert.Equal(t, models.TierLarge, TierFor(6))
}

func TestQuotePriceFormula(t *testing.T) {
	pricing := []models.GroupPricing{{StudentRange: models.TierSmall, Price: 20}}
	price, ok := Quote(pricing, models.LessonOption{LessonCount: 5}, 3)
	assert.True(t, ok)
	assert.Equal(t, 300.0, price)
}

func TestQuotePicksMatchingTier(t *testing.T) {
	pricing := []models.GroupPricing{
		{StudentRange: models.TierSmall, Price: 20},
		{StudentRange: models.TierLarge, Price: 15},
	}
	price, ok := Quote(pricing, models.LessonOption{LessonCount: 4}, 5)
	assert.True(t, ok)
	assert.Equal(t, 300.0, price)
}

func TestQuoteMissingTierYieldsZero(t *testing.T) {
	pricing := []models.GroupPricing{{StudentRange: models.TierSmall, Price: 20}}
	price, ok := Quote(pricing, models.LessonOption{LessonCount: 4}, 6)
	assert.False(t, ok)
	assert.Zero(t, price)
}
