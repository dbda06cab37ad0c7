package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"
)

//go:embed brands.json5
var embeddedBrands []byte

// BrandTarget is one retail page visited every cycle
type BrandTarget struct {
	Name         string   `json:"name" validate:"required"`
	URL          string   `json:"url" validate:"required,url"`
	AffiliateURL string   `json:"affiliate_url,omitempty" validate:"omitempty,url"`
	Category     string   `json:"category" validate:"required"`
	Tags         []string `json:"tags,omitempty"`
}

// Catalog is the on-disk shape of the brand list
type Catalog struct {
	Brands []BrandTarget `json:"brands" validate:"required,min=1,dive"`
}

const defaultCategory = "apparel"

// LoadBrands reads the brand catalog at path and merges <name>.local.<ext> on top of it.
// Entries in the local file are appended; a local entry with the same name replaces the
// base entry. When neither file exists the embedded catalog is used.
func LoadBrands(path string) ([]BrandTarget, error) {
	catalog, err := readCatalog(path)
	if os.IsNotExist(err) {
		logger.Warn("Brand catalog %s not found, using embedded catalog", path)
		catalog, err = parseCatalog(embeddedBrands)
	}
	if err != nil {
		return nil, err
	}
	return finalizeCatalog(catalog)
}

// EmbeddedBrands returns the catalog compiled into the binary
func EmbeddedBrands() ([]BrandTarget, error) {
	catalog, err := parseCatalog(embeddedBrands)
	if err != nil {
		return nil, err
	}
	return finalizeCatalog(catalog)
}

func readCatalog(path string) (Catalog, error) {
	var out Catalog
	allNotFound := true

	base, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return out, errors.NewConfiguration("failed to read brand catalog", err)
	}
	if len(base) > 0 {
		out, err = parseCatalog(base)
		if err != nil {
			return out, err
		}
		allNotFound = false
	}

	localPath := localVariant(path)
	local, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, errors.NewConfiguration("failed to read local brand catalog", err)
	}
	if len(local) > 0 {
		override, err := parseCatalog(local)
		if err != nil {
			return out, err
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return out, errors.NewConfiguration("failed to merge local brand catalog", err)
		}
		logger.Info("Merged brand catalog with local overrides from %s", localPath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

func parseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := json5.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, errors.NewConfiguration("failed to parse brand catalog", err)
	}
	return catalog, nil
}

// finalizeCatalog applies defaults, collapses duplicate names and validates every entry
func finalizeCatalog(catalog Catalog) ([]BrandTarget, error) {
	index := make(map[string]int, len(catalog.Brands))
	var brands []BrandTarget
	for _, b := range catalog.Brands {
		b.Name = strings.TrimSpace(b.Name)
		b.URL = strings.TrimSpace(b.URL)
		if b.Category == "" {
			b.Category = defaultCategory
		}
		key := strings.ToLower(b.Name)
		if i, ok := index[key]; ok {
			brands[i] = b
			continue
		}
		index[key] = len(brands)
		brands = append(brands, b)
	}

	validate := validator.New()
	if err := validate.Struct(Catalog{Brands: brands}); err != nil {
		return nil, errors.NewValidation("", "invalid brand catalog", err)
	}
	return brands, nil
}

// localVariant turns config/brands.json5 into config/brands.local.json5
func localVariant(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf("%s.local%s", name, ext))
}
