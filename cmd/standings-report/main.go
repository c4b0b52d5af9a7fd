// Command standings-report prints a tournament section's current standings
// as a formatted text table, tiebreak columns included.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/olekukonko/tablewriter"

	"github.com/cliffdoyle/chess-arbiter/internal/repository"
	"github.com/cliffdoyle/chess-arbiter/internal/standings"
)

func main() {
	tournamentID := flag.String("tournament", "", "tournament ID")
	section := flag.String("section", "Open", "section name")
	flag.Parse()

	if *tournamentID == "" {
		fmt.Fprintln(os.Stderr, "usage: standings-report -tournament <id> [-section <name>]")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	dbHost := getEnvOrDefault("DB_HOST", "localhost")
	dbPort := getEnvOrDefault("DB_PORT", "5432")
	dbUser := getEnvOrDefault("DB_USER", "postgres")
	dbPass := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "chess_arbiter")

	dbConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require",
		dbHost, dbPort, dbUser, dbPass, dbName)

	db, err := sql.Open("postgres", dbConnStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	tournamentRepo := repository.NewTournamentRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	pairingRepo := repository.NewPairingRepository(db)
	resultRepo := repository.NewResultRepository(db)
	calc := standings.New(playerRepo, pairingRepo, resultRepo)

	ctx := context.Background()
	t, err := tournamentRepo.Get(ctx, *tournamentID)
	if err != nil {
		log.Fatalf("Failed to load tournament: %v", err)
	}

	rows, err := calc.Standings(ctx, *tournamentID, *section, t.TiebreakOrderOrDefault())
	if err != nil {
		log.Fatalf("Failed to compute standings: %v", err)
	}

	header := []string{"Rank", "Name", "Rating", "Score", "Games", "W-L-D"}
	for _, kind := range t.TiebreakOrderOrDefault() {
		header = append(header, string(kind))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	for _, row := range rows {
		rating := 0
		if row.Player.Rating != nil {
			rating = *row.Player.Rating
		}
		line := []string{
			fmt.Sprintf("%d", row.Rank),
			row.Player.DisplayName,
			fmt.Sprintf("%d", rating),
			fmt.Sprintf("%.1f", row.Score),
			fmt.Sprintf("%d", row.GamesPlayed),
			fmt.Sprintf("%d-%d-%d", row.Wins, row.Losses, row.Draws),
		}
		for _, kind := range t.TiebreakOrderOrDefault() {
			line = append(line, fmt.Sprintf("%.2f", row.Tiebreaks[kind]))
		}
		table.Append(line)
	}
	table.Render()
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
