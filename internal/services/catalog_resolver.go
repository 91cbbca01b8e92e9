package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

// CatalogResolverDeps bundles collaborators required to construct the catalog resolver.
type CatalogResolverDeps struct {
	Designs repositories.DesignRepository
}

type catalogResolver struct {
	designs repositories.DesignRepository
}

var _ CatalogResolver = (*catalogResolver)(nil)

// NewCatalogResolver constructs a CatalogResolver over the design repository.
func NewCatalogResolver(deps CatalogResolverDeps) (CatalogResolver, error) {
	if deps.Designs == nil {
		return nil, errors.New("catalog resolver: design repository is required")
	}
	return &catalogResolver{designs: deps.Designs}, nil
}

// ResolveLine walks design, material, size and color in that order and stops at the first missing link.
func (r *catalogResolver) ResolveLine(ctx context.Context, tx repositories.Tx, ref LineRef) (LineSnapshot, error) {
	designID := strings.TrimSpace(ref.DesignID)
	if designID == "" {
		return LineSnapshot{}, validationError("design id is required")
	}

	design, err := r.designs.FindByID(ctx, tx, designID)
	if err != nil {
		return LineSnapshot{}, mapRepositoryError(err, EntityDesign, designID)
	}
	if design.Status == domain.DesignStatusHidden {
		return LineSnapshot{}, notFound(EntityDesign, designID)
	}

	idx := slices.IndexFunc(design.Materials, func(m domain.Material) bool { return m.ID == ref.MaterialID })
	if idx < 0 {
		return LineSnapshot{}, notFound(EntityMaterial, ref.MaterialID)
	}
	material := design.Materials[idx]

	idx = slices.IndexFunc(material.Sizes, func(s domain.Size) bool { return s.ID == ref.SizeID })
	if idx < 0 {
		return LineSnapshot{}, notFound(EntitySize, ref.SizeID)
	}
	size := material.Sizes[idx]

	idx = slices.IndexFunc(material.Colors, func(c domain.Color) bool { return c.ID == ref.ColorID })
	if idx < 0 {
		return LineSnapshot{}, notFound(EntityColor, ref.ColorID)
	}
	color := material.Colors[idx]

	return LineSnapshot{
		DesignID:   design.ID,
		DesignerID: design.DesignerID,
		Fabric:     material.Fabric,
		SizeValue:  size.Value,
		Price:      size.Price,
		ColorValue: color.Value,
		Images:     slices.Clone(color.Images),
	}, nil
}
