package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"content-paygate/internal/config"
	pg "content-paygate/internal/infra/db/postgres"
)

// Seeds a demo merchant and two contents for exercising the payment flow
// locally. Does nothing when the merchant is already present.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	const merchantID = "demo-merchant"
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM merchants WHERE id = $1)`, merchantID).Scan(&exists); err != nil {
		log.Fatalf("check merchant: %v", err)
	}
	if exists {
		fmt.Println("demo merchant already present. No changes.")
		return
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO merchants (id, name, payout_address, status)
		VALUES ($1, $2, $3, 'active')`,
		merchantID, "Demo Merchant", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
	)
	if err != nil {
		log.Fatalf("seed merchant: %v", err)
	}

	contents := []struct {
		ID       string
		Title    string
		Price    int64
		Currency string
		Chain    string
		Duration *int64
	}{
		{"demo-article", "Demo Article", 100_000_000, "SOL", "solana", int64Ptr(86_400)},
		{"demo-video", "Demo Video", 1_000_000_000, "SOL", "solana", nil},
	}
	for _, c := range contents {
		_, err := pool.Exec(ctx, `
			INSERT INTO contents (id, merchant_id, title, price, currency, chain, access_duration_secs)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, merchantID, c.Title, c.Price, c.Currency, c.Chain, c.Duration,
		)
		if err != nil {
			log.Fatalf("seed content %q: %v", c.ID, err)
		}
		fmt.Printf("seeded: %s (price=%d %s on %s)\n", c.Title, c.Price, c.Currency, c.Chain)
	}

	fmt.Println("Seeding complete.")
}

func int64Ptr(v int64) *int64 { return &v }
