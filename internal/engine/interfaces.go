package engine

import (
	"context"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/service"
)

// AttributeWriter persists a classification result onto the adults of its
// giving unit.
type AttributeWriter interface {
	WriteClassification(ctx context.Context, result model.ClassificationResult, adults []model.Person) error
}

// ProgressReporter is notified as giving units finish classifying.
type ProgressReporter interface {
	Start(total int)
	Increment()
	Finish()
}

// Dependencies are the collaborators a Job reads from and writes to.
type Dependencies struct {
	Gifts    service.GiftStore
	Settings service.SettingsStore
	People   service.PersonStore
	Runs     service.RunLog   // Optional
	Writer   AttributeWriter  // Defaults to writing through People
	Progress ProgressReporter // Optional
}

// personStoreWriter writes classification attributes through a PersonStore.
type personStoreWriter struct {
	people service.PersonStore
}

// NewAttributeWriter returns a writer that stores every attribute of the
// result on each adult in one storage transaction.
func NewAttributeWriter(people service.PersonStore) AttributeWriter {
	return &personStoreWriter{people: people}
}

func (w *personStoreWriter) WriteClassification(ctx context.Context, result model.ClassificationResult, adults []model.Person) error {
	return w.people.WriteAttributes(ctx, adults, result.AttributeValues())
}

type noopProgress struct{}

func (noopProgress) Start(int)  {}
func (noopProgress) Increment() {}
func (noopProgress) Finish()    {}
