package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openreserve/reserve-forecast/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestAssociationRoundTrip(t *testing.T) {
	s := openTestStore(t)

	created, err := s.CreateAssociation(Association{Name: "Harbor View", Units: 20})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	list, err := s.ListAssociations()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Harbor View", list[0].Name)
	require.Equal(t, 20, list[0].Units)
}

func TestModelRoundTripFoldsUnits(t *testing.T) {
	s := openTestStore(t)

	assoc, err := s.CreateAssociation(Association{Name: "Harbor View", Units: 20})
	require.NoError(t, err)

	model, err := s.CreateModel(Model{
		AssociationID: assoc.ID,
		Name:          "baseline",
		Params: config.ModelParameters{
			HorizonYears:      30,
			StartYear:         2026,
			StartingBalance:   50000,
			MonthlyFee:        95,
			MaxFeeIncreasePct: 5,
		},
	})
	require.NoError(t, err)

	loaded, err := s.GetModel(model.ID)
	require.NoError(t, err)
	require.Equal(t, "baseline", loaded.Name)
	require.Equal(t, 30, loaded.Params.HorizonYears)
	require.Equal(t, 95.0, loaded.Params.MonthlyFee)
	require.Equal(t, 20, loaded.Params.Units, "association units fold into the loaded parameters")
	require.Equal(t, "baseline", loaded.Params.Name)

	models, err := s.ListModels(assoc.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
}

func TestGetModelMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetModel("no-such-model")
	require.Error(t, err)
}

func TestLineItemRoundTrip(t *testing.T) {
	s := openTestStore(t)

	assoc, err := s.CreateAssociation(Association{Name: "Harbor View", Units: 20})
	require.NoError(t, err)
	model, err := s.CreateModel(Model{
		AssociationID: assoc.ID,
		Name:          "baseline",
		Params:        config.ModelParameters{HorizonYears: 30, StartYear: 2026},
	})
	require.NoError(t, err)

	item, err := s.CreateLineItem(model.ID, config.LineItem{Name: "Roof", Cost: 100000, RemainingLife: 12})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, 1, item.Redundancy, "redundancy defaults to one")
	require.Equal(t, "Small", item.Class, "class defaults to Small")

	items, err := s.ListLineItems(model.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Roof", items[0].Name)

	require.NoError(t, s.DeleteLineItem(item.ID))
	items, err = s.ListLineItems(model.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestWriteBackOptimizedFee(t *testing.T) {
	s := openTestStore(t)

	assoc, err := s.CreateAssociation(Association{Name: "Harbor View", Units: 20})
	require.NoError(t, err)
	model, err := s.CreateModel(Model{
		AssociationID: assoc.ID,
		Name:          "baseline",
		Params:        config.ModelParameters{HorizonYears: 30, StartYear: 2026, MonthlyFee: 95},
	})
	require.NoError(t, err)

	require.NoError(t, s.WriteBackOptimizedFee(model.ID, 123.45))

	loaded, err := s.GetModel(model.ID)
	require.NoError(t, err)
	require.Equal(t, 123.45, loaded.Params.MonthlyFee)

	require.Error(t, s.WriteBackOptimizedFee("no-such-model", 1), "writing back to a missing model fails")
}
