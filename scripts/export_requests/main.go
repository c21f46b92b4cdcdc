package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/internal/services"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Exports all requests with their response and outcome counts to an .xlsx
// report. Usage: go run ./scripts/export_requests [output.xlsx]
func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	outPath := "requests_export.xlsx"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"), os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"), os.Getenv("DB_PORT"), os.Getenv("DB_SSLMODE"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}

	var requests []models.Request
	if err := db.Preload("Requester").Order("created_at ASC").Find(&requests).Error; err != nil {
		log.Fatal("failed to load requests:", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Requests"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"ID", "Requester", "Type", "Time Commitment", "Status", "Created", "Expires", "Responses", "Outcomes", "AI Assisted"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	now := time.Now().UTC()
	exported := 0

	for i, request := range requests {
		var responseCount, outcomeCount int64
		db.Model(&models.Response{}).Where("request_id = ?", request.ID).Count(&responseCount)
		db.Model(&models.Outcome{}).Where("request_id = ?", request.ID).Count(&outcomeCount)

		status := services.EffectiveStatusAt(&request, now)

		row := i + 2
		values := []interface{}{
			request.ID,
			request.Requester.Name,
			request.RequestType,
			request.TimeCommitment,
			status,
			request.CreatedAt.Format(time.RFC3339),
			request.ExpiresAt.Format(time.RFC3339),
			responseCount,
			outcomeCount,
			request.AIAssisted,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
		exported++
	}

	if err := f.SaveAs(outPath); err != nil {
		log.Fatal("failed to save workbook:", err)
	}

	fmt.Printf("Exported %d requests to %s\n", exported, outPath)
}
