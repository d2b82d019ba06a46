package schema

import "github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"

// PharmaceuticalProductsID is the identifier of the default destination index.
const PharmaceuticalProductsID = "pharmaceutical_products"

// builtinSchemas returns the index schemas shipped with the application.
// Custom indexes are layered on top by the registry.
func builtinSchemas() []*domain.IndexSchema {
	return []*domain.IndexSchema{
		{
			ID:          PharmaceuticalProductsID,
			Name:        "Produits pharmaceutiques",
			Description: "Base produits officine: identité, classification, données cliniques",
			Kind:        domain.BuiltInKind(),
			Fields: map[string]domain.FieldSpec{
				"product_code": {
					Type:        domain.FieldTypeString,
					Required:    true,
					MinLength:   2,
					MaxLength:   100,
					Pattern:     `^[a-z0-9_]+$`,
					Description: "Identifiant produit en snake_case, ex: doliprane_500mg",
				},
				"product_name": {
					Type:        domain.FieldTypeString,
					Required:    true,
					MinLength:   2,
					MaxLength:   200,
					Description: "Nom commercial du produit, ex: DOLIPRANE 500 mg",
				},
				"dci": {
					Type:        domain.FieldTypeString,
					Required:    true,
					MinLength:   2,
					MaxLength:   200,
					Description: "Dénomination Commune Internationale (principe actif)",
				},
				"category": {
					Type:        domain.FieldTypeString,
					Recommended: true,
					MaxLength:   100,
					Description: "Catégorie thérapeutique, ex: antalgique",
				},
				"product_data": {
					Type:        domain.FieldTypeObject,
					Recommended: true,
					Description: "Données structurées: identity, classification, clinical, rag_metadata",
				},
			},
		},
	}
}
