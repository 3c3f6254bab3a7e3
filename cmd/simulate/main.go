// simulate fires concurrent reservation attempts at a single doctor slot
// and verifies that exactly one of them wins while every other caller gets
// a conflict. Run it against a live api-server and database.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightsmile/dental-portal/internal/db"
)

type result struct {
	status  int
	latency time.Duration
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := flag.String("url", "http://localhost:8080", "api-server base URL")
	workers := flag.Int("workers", 50, "concurrent reservation attempts")
	service := flag.String("service", "CLEANING", "service code to book")
	dateStr := flag.String("date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "appointment date")
	timeStr := flag.String("time", "10:00", "appointment time")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	patients, err := loadPatients(ctx, pool, *workers)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(patients) < *workers {
		log.Fatalf("need %d patients, found %d (run cmd/seed first)", *workers, len(patients))
	}

	log.Printf("firing %d concurrent reservations for %s %s %s", *workers, *service, *dateStr, *timeStr)

	results := make([]result, *workers)
	var started, created, conflicted, failed int64

	var wg sync.WaitGroup
	gate := make(chan struct{})

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			token, err := mintToken(secret, patients[i])
			if err != nil {
				log.Printf("worker %d: mint token: %v", i, err)
				atomic.AddInt64(&failed, 1)
				return
			}

			body, _ := json.Marshal(map[string]any{
				"service":         *service,
				"appointmentDate": *dateStr,
				"appointmentTime": *timeStr,
				"paymentMethod":   "selfPay",
			})

			<-gate
			atomic.AddInt64(&started, 1)

			start := time.Now()
			status, err := post(*baseURL+"/api/appointments", token, body)
			results[i] = result{status: status, latency: time.Since(start)}

			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case status == http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case status == http.StatusConflict:
				atomic.AddInt64(&conflicted, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}

	close(gate)
	wg.Wait()

	min, max, p50, p95 := latencyStats(results)
	log.Printf("attempts=%d created=%d conflict=%d failed=%d", started, created, conflicted, failed)
	log.Printf("latency min=%s p50=%s p95=%s max=%s", min, p50, p95, max)

	var active int
	err = pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN doctor_services ds ON ds.doctor_id = a.doctor_id AND ds.service_code = a.service_code
		WHERE a.appointment_date = $1
		  AND a.appointment_time = $2
		  AND a.service_code = $3
		  AND a.status IN ('scheduled', 'confirmed', 'in_progress')
	`, *dateStr, *timeStr, *service).Scan(&active)
	if err != nil {
		log.Fatalf("verify slot occupancy: %v", err)
	}

	// The service auto-assigns the first eligible doctor, so every attempt
	// targeted the same doctor-date-time triple.
	if created != 1 || active != 1 {
		log.Fatalf("FAIL: expected exactly one winner, got created=%d active_rows=%d", created, active)
	}

	log.Println("PASS: exactly one reservation won the race")
}

func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func mintToken(secret string, patientID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   patientID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func post(url, token string, body []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func latencyStats(results []result) (min, max, p50, p95 time.Duration) {
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		if r.latency > 0 {
			latencies = append(latencies, r.latency)
		}
	}
	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95idx := len(latencies) * 95 / 100
	if p95idx >= len(latencies) {
		p95idx = len(latencies) - 1
	}
	p95 = latencies[p95idx]
	return min, max, p50, p95
}
