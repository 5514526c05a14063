// Package main заполняет базу демо-данными: компания, администратор,
// станки с датчиками, показания, алерты и задачи обслуживания
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	apextext "github.com/apex/log/handlers/text"

	"machinery-monitor/internal/config"
	"machinery-monitor/internal/store"
)

func main() {
	company := flag.String("company", "Default Company", "Company (tenant) name")
	login := flag.String("login", "admin", "Admin login_id")
	password := flag.String("password", "admin", "Admin password")
	machines := flag.Int("machines", 5, "Number of machines")
	days := flag.Int("days", 30, "Days of sensor history")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	log.SetHandler(apextext.New(os.Stderr))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *machines < 1 || *days < 1 {
		fmt.Fprintln(os.Stderr, "machines and days must be positive")
		os.Exit(2)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer st.Close()

	stats, err := NewGenerator(st, *seed, time.Now().UTC()).Run(ctx, Options{
		Company:  *company,
		Login:    *login,
		Password: *password,
		Machines: *machines,
		Days:     *days,
	})
	if err != nil {
		log.WithError(err).Fatal("demo data generation failed")
	}

	log.WithFields(log.Fields{
		"company_id": stats.CompanyID,
		"machines":   stats.Machines,
		"sensors":    stats.Sensors,
		"readings":   stats.Readings,
		"alerts":     stats.Alerts,
		"tasks":      stats.Tasks,
	}).Info("demo data generation complete")
}
