package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryKind(t *testing.T) {
	for _, valid := range []string{"server", "thermocup", "general"} {
		kind, ok := ParseCategoryKind(valid)
		require.True(t, ok)
		assert.Equal(t, CategoryKind(valid), kind)
	}

	_, ok := ParseCategoryKind("Server Hardware")
	assert.False(t, ok, "display names must not parse as kinds")
}

func TestAttributesValidate(t *testing.T) {
	server := &ServerAttributes{RAMGB: 64, CPUModel: "EPYC 7302", CPUCores: 16, FormFactor: "2U", Manufacturer: "Dell"}
	cup := &ThermocupAttributes{VolumeML: 450, Color: "black", Brand: "Contigo", IsHermetic: true}

	tests := []struct {
		name    string
		attrs   Attributes
		wantErr error
	}{
		{"server with server attrs", Attributes{Kind: KindServer, Server: server}, nil},
		{"thermocup with thermocup attrs", Attributes{Kind: KindThermocup, Thermocup: cup}, nil},
		{"general with no attrs", Attributes{Kind: KindGeneral}, nil},
		{"server missing attrs", Attributes{Kind: KindServer}, ErrAttributeKind},
		{"server with thermocup attrs", Attributes{Kind: KindServer, Server: server, Thermocup: cup}, ErrAttributeKind},
		{"general with attrs", Attributes{Kind: KindGeneral, Server: server}, ErrAttributeKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attrs.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewProductInputValidate(t *testing.T) {
	base := NewProductInput{Name: "dell r740", CategoryID: 1, BasePrice: 2500}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})
	t.Run("empty name", func(t *testing.T) {
		in := base
		in.Name = ""
		assert.ErrorIs(t, in.Validate(), ErrEmptyProductName)
	})
	t.Run("negative price", func(t *testing.T) {
		in := base
		in.BasePrice = -1
		assert.ErrorIs(t, in.Validate(), ErrInvalidPrice)
	})
	t.Run("negative initial quantity", func(t *testing.T) {
		in := base
		in.InitialQuantity = -5
		assert.ErrorIs(t, in.Validate(), ErrInvalidQuantity)
	})
	t.Run("initial quantity without warehouse", func(t *testing.T) {
		in := base
		in.InitialQuantity = 5
		assert.ErrorIs(t, in.Validate(), ErrMissingWarehouse)
	})
}
