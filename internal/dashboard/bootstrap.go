package dashboard

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
	"github.com/sebastiankruger/steelmill-kpi/internal/kpi"
)

// LayoutCard is one entry of the bootstrap layout file
type LayoutCard struct {
	Title string         `yaml:"title"`
	Type  kpi.MetricType `yaml:"type"`
}

// DefaultLayout is the built-in card set used when no layout file exists:
// one card per production metric
func DefaultLayout() []LayoutCard {
	return []LayoutCard{
		{Title: "Coils per Hour", Type: kpi.MetricCoils},
		{Title: "Tonnage", Type: kpi.MetricTons},
		{Title: "Shipped Units", Type: kpi.MetricShipped},
		{Title: "Yield", Type: kpi.MetricYield},
		{Title: "Line Efficiency", Type: kpi.MetricEfficiency},
		{Title: "Quality Rate", Type: kpi.MetricQuality},
		{Title: "Energy Intensity", Type: kpi.MetricEnergy},
	}
}

// LoadLayout reads a YAML layout file. A missing file is not an error; the
// built-in default layout is returned instead.
func LoadLayout(path string) ([]LayoutCard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultLayout(), nil
		}
		return nil, fmt.Errorf("read layout file: %w", err)
	}

	var layout []LayoutCard
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("parse layout file: %w", err)
	}
	if len(layout) == 0 {
		return DefaultLayout(), nil
	}
	return layout, nil
}

// Seed populates an empty collection from the given layout and persists it.
// A non-empty collection is left untouched.
func (d *Dashboard) Seed(ctx context.Context, layout []LayoutCard) error {
	if d.count() > 0 {
		return nil
	}

	seeded := make([]card.Card, 0, len(layout))
	for i, lc := range layout {
		c := card.New(lc.Title, lc.Type, i)
		if err := c.Validate(); err != nil {
			log.Warn().Err(err).Str("title", lc.Title).Msg("Skipping invalid layout card")
			continue
		}
		c.Data = d.gen.Generate(c.Type)
		seeded = append(seeded, c)
	}

	d.replace(card.Renormalize(seeded))
	log.Info().Int("cards", len(seeded)).Msg("Seeded default card layout")

	return d.Save(ctx)
}
