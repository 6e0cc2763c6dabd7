package ingest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

var generatorTitles = []string{
	"System Health Check Alert",
	"High CPU Usage Detected",
	"New Deployment Available",
	"Database Backup Completed",
	"Security Scan Finished",
	"Memory Usage Warning",
	"Service Restart Required",
	"SSL Certificate Expiring Soon",
	"New User Registration Spike",
	"API Rate Limit Approaching",
}

var generatorPriorities = []domain.Priority{
	domain.PriorityLow,
	domain.PriorityMedium,
	domain.PriorityHigh,
}

// Generator is a synthetic event source for demos and load testing.
// Each poll produces one to three random events; params are ignored.
type Generator struct{}

// NewGenerator creates the synthetic connector.
func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) SourceType() string { return "GEN" }

func (g *Generator) Poll(ctx context.Context, params string) ([]domain.Event, error) {
	count := rand.IntN(3) + 1

	events := make([]domain.Event, 0, count)
	for range count {
		uniqueID := uuid.New().String()[:8]
		events = append(events, domain.Event{
			SourceType: "GEN",
			ExternalID: "gen:" + uniqueID,
			Title:      generatorTitles[rand.IntN(len(generatorTitles))],
			Payload: fmt.Sprintf(`{"generated":true,"timestamp":%q,"detail":"Auto-generated event #%s"}`,
				time.Now().Format(time.RFC3339), uniqueID),
			Priority:  generatorPriorities[rand.IntN(len(generatorPriorities))],
			CreatedAt: time.Now(),
		})
	}
	return events, nil
}
