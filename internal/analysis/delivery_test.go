package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDelivery(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		city         string
		neighborhood string
		phone        string
	}{
		{
			name:         "combined utterance",
			text:         "je suis à Douala, Akwa 699123456",
			city:         "douala",
			neighborhood: "akwa",
			phone:        "699123456",
		},
		{
			name:  "city and phone only",
			text:  "livraison à Yaoundé mon numéro 677001122",
			city:  "yaounde",
			phone: "677001122",
		},
		{
			name:         "neighborhood keyword",
			text:         "j'habite à Douala, quartier Bonapriso, appelez-moi",
			city:         "douala",
			neighborhood: "bonapriso",
		},
		{
			name:  "international phone",
			text:  "contactez-moi au +237 699 12 34 56",
			phone: "+237699123456",
		},
		{
			name: "english city",
			text: "I live in Buea, call me later",
			city: "buea",
		},
		{
			name: "nothing to extract",
			text: "je veux 3 poulets",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDelivery(NormalizeText(tt.text))
			assert.Equal(t, tt.city, got.City, "city")
			assert.Equal(t, tt.neighborhood, got.Neighborhood, "neighborhood")
			assert.Equal(t, tt.phone, got.Phone, "phone")
		})
	}
}

func TestDeliveryInfo_MissingFields(t *testing.T) {
	assert.Equal(t, []string{"city", "neighborhood", "phone"}, DeliveryInfo{}.MissingFields())
	assert.Equal(t, []string{"neighborhood"}, DeliveryInfo{City: "douala", Phone: "699123456"}.MissingFields())
	assert.Empty(t, DeliveryInfo{City: "douala", Neighborhood: "akwa", Phone: "699123456"}.MissingFields())
}
