package memory

import (
	"context"
	"testing"

	"finanzas/internal/core"
)

func TestExporterAppendAndList(t *testing.T) {
	e := New()
	ctx := context.Background()

	ref, err := e.AppendTransactions(ctx, []core.Transaction{
		{Date: core.NewDate(2024, 3, 1), Kind: core.Income, Name: "Nómina", Amount: core.Money{Cents: 250000}},
		{Date: core.NewDate(2024, 4, 1), Kind: core.Income, Name: "Nómina", Amount: core.Money{Cents: 250000}},
	})
	if err != nil || ref != "mem:1:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = e.AppendTransactions(ctx, []core.Transaction{
		{Date: core.NewDate(2024, 3, 5), Kind: core.Expense, Name: "streaming", Amount: core.Money{Cents: 1299}},
	})
	if err != nil || ref != "mem:3:3" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	march, err := e.ListExported(ctx, 2024, 3)
	if err != nil || len(march) != 2 {
		t.Fatalf("unexpected list: %v err=%v", march, err)
	}
	if len(e.Rows()) != 3 {
		t.Errorf("Rows() = %d, want 3", len(e.Rows()))
	}
}

func TestExporterRejectsUnknownKind(t *testing.T) {
	e := New()
	_, err := e.AppendTransactions(context.Background(), []core.Transaction{{Kind: "gift"}})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if len(e.Rows()) != 0 {
		t.Error("a rejected batch must not be stored")
	}
}

func TestExporterEmptyBatch(t *testing.T) {
	ref, err := New().AppendTransactions(context.Background(), nil)
	if err != nil || ref != "" {
		t.Fatalf("unexpected result: ref=%q err=%v", ref, err)
	}
	if _, err := New().ListExported(context.Background(), 2024, 13); err == nil {
		t.Error("expected error for month 13")
	}
}
