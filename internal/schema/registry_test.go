package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
)

type fakeLister struct {
	indexes []domain.CustomIndex
	err     error
	calls   int
}

func (f *fakeLister) List(ctx context.Context) ([]domain.CustomIndex, error) {
	f.calls++
	return f.indexes, f.err
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry(nil)

	s, ok := r.Get(PharmaceuticalProductsID)
	if !ok {
		t.Fatalf("built-in schema %q not found", PharmaceuticalProductsID)
	}
	if s.Fields["product_code"].Required != true {
		t.Error("product_code should be required")
	}
}

func TestRegistryNilListerLoad(t *testing.T) {
	r := NewRegistry(nil)

	if err := r.LoadCustom(context.Background()); err != nil {
		t.Fatalf("LoadCustom with nil lister: %v", err)
	}
	if _, ok := r.Get(PharmaceuticalProductsID); !ok {
		t.Error("built-ins should survive a load with no lister")
	}
}

func TestRegistryLazyLoad(t *testing.T) {
	lister := &fakeLister{indexes: []domain.CustomIndex{{
		ID:     "idx-1",
		Slug:   "parapharmacie",
		Name:   "Parapharmacie",
		Fields: domain.FieldSpecMap{"product_name": {Type: domain.FieldTypeString, Required: true}},
	}}}
	r := NewRegistry(lister)

	if _, ok := r.Get("parapharmacie"); ok {
		t.Fatal("custom schema visible before LoadCustom")
	}
	if err := r.LoadCustom(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadCustom(context.Background()); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 1 {
		t.Errorf("expected a single store read, got %d", lister.calls)
	}
	if _, ok := r.Get("parapharmacie"); !ok {
		t.Error("custom schema missing after LoadCustom")
	}
}

func TestRegistryReload(t *testing.T) {
	lister := &fakeLister{}
	r := NewRegistry(lister)
	if err := r.LoadCustom(context.Background()); err != nil {
		t.Fatal(err)
	}

	lister.indexes = []domain.CustomIndex{{ID: "idx-2", Slug: "veterinaire", Name: "Vétérinaire"}}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := r.Get("veterinaire"); !ok {
		t.Error("Reload should pick up new custom schemas")
	}
	if lister.calls != 2 {
		t.Errorf("expected 2 store reads, got %d", lister.calls)
	}
}

func TestRegistryCustomNeverShadowsBuiltin(t *testing.T) {
	lister := &fakeLister{indexes: []domain.CustomIndex{{
		ID:   "idx-3",
		Slug: PharmaceuticalProductsID,
		Name: "Imposteur",
	}}}
	r := NewRegistry(lister)
	if err := r.LoadCustom(context.Background()); err != nil {
		t.Fatal(err)
	}

	s, ok := r.Get(PharmaceuticalProductsID)
	if !ok {
		t.Fatal("built-in schema disappeared")
	}
	if s.Name == "Imposteur" {
		t.Error("custom definition shadowed the built-in schema")
	}
}

func TestRegistryLoadError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	r := NewRegistry(lister)

	if err := r.LoadCustom(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if _, ok := r.Get(PharmaceuticalProductsID); !ok {
		t.Error("built-ins should stay available after a failed load")
	}
}

func TestRegistryGetAllSorted(t *testing.T) {
	r := NewRegistry(nil)

	all := r.GetAll()
	if len(all) == 0 {
		t.Fatal("expected at least the built-in schemas")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("schemas not sorted by ID: %q before %q", all[i-1].ID, all[i].ID)
		}
	}
}
