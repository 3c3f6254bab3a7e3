package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightsmile/dental-portal/internal/db"
)

type seedService struct {
	code            string
	name            string
	category        string
	durationMinutes int
	basePriceCents  int64
}

var services = []seedService{
	{"CONSULTATION", "Dental Consultation", "general", 30, 0},
	{"CLEANING", "Teeth Cleaning", "preventive", 45, 8000},
	{"WHITENING", "Teeth Whitening", "cosmetic", 60, 30000},
	{"FILLINGS", "Dental Fillings", "restorative", 60, 15000},
	{"EXTRACTION", "Tooth Extraction", "surgical", 45, 20000},
	{"ROOT-CANAL", "Root Canal Treatment", "restorative", 90, 80000},
	{"IMPLANTS", "Dental Implants", "surgical", 120, 150000},
	{"ORTHODONTICS", "Orthodontic Consultation", "orthodontic", 60, 25000},
}

var specializations = []string{
	"General Dentistry",
	"Orthodontics",
	"Oral Surgery",
	"Periodontics",
	"Endodontics",
	"Prosthodontics",
	"Pediatric Dentistry",
	"Cosmetic Dentistry",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedServices(context.Background(), pool); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedDoctors(context.Background(), pool, 8); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding %d services", len(services))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range services {
		_, err := tx.Exec(ctx, `
			INSERT INTO services (code, name, category, duration_minutes, base_price_cents, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
			ON CONFLICT (code) DO NOTHING
		`, s.code, s.name, s.category, s.durationMinutes, s.basePriceCents)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, title, first_name, last_name, specialization, is_active, is_available, created_at, updated_at)
			VALUES ($1, 'Dr.', $2, $3, $4, true, true, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), spec)
		if err != nil {
			return err
		}

		// Every doctor does consultations; the rest of the catalog is a
		// random subset.
		offered := map[string]bool{"CONSULTATION": true}
		for _, s := range services {
			if gofakeit.Bool() {
				offered[s.code] = true
			}
		}
		for code := range offered {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_services (doctor_id, service_code) VALUES ($1, $2)
			`, id, code)
			if err != nil {
				return err
			}
		}

		// Weekdays 09:00-17:00, Saturday 10:00-14:00 for roughly half the
		// roster, Sunday closed.
		for weekday := 0; weekday <= 6; weekday++ {
			start, end := "09:00", "17:00"
			working := weekday >= 1 && weekday <= 5

			if weekday == 6 && gofakeit.Bool() {
				start, end = "10:00", "14:00"
				working = true
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_working_hours (doctor_id, weekday, start_time, end_time, is_working)
				VALUES ($1, $2, $3, $4, $5)
			`, id, weekday, start, end, working)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, first_name, last_name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(), phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
