package hospital

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var demoDoctors = []Doctor{
	{Name: "Sarah Lee", Specialty: "General Practice"},
	{Name: "Michael Chen", Specialty: "Cardiology"},
	{Name: "Priya Natarajan", Specialty: "Pediatrics"},
	{Name: "David Okafor", Specialty: "Dermatology"},
}

var demoStock = []PharmacyStock{
	{MedicineName: "Paracetamol", Quantity: 120},
	{MedicineName: "Ibuprofen", Quantity: 80},
	{MedicineName: "Amoxicillin", Quantity: 40},
	{MedicineName: "Cetirizine", Quantity: 0},
}

// Seed fills empty doctor and pharmacy tables with demo data. Tables that
// already hold rows are left alone.
func (r *Repository) Seed(ctx context.Context) error {
	doctors, err := r.db.NewSelect().Model((*Doctor)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count doctors: %w", err)
	}
	if doctors == 0 {
		rows := append([]Doctor(nil), demoDoctors...)
		if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("seed doctors: %w", err)
		}
		log.Info().Int("rows", len(rows)).Msg("seeded doctors")
	}

	stock, err := r.db.NewSelect().Model((*PharmacyStock)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count pharmacy stock: %w", err)
	}
	if stock == 0 {
		rows := append([]PharmacyStock(nil), demoStock...)
		if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("seed pharmacy stock: %w", err)
		}
		log.Info().Int("rows", len(rows)).Msg("seeded pharmacy stock")
	}

	return nil
}
