package prompt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/store/memory"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/workflow"
)

// scriptedDriver answers prompts by label prefix. Input answers rejected by
// the validator are recorded and the next answer is tried, as survey would.
type scriptedDriver struct {
	answers  map[string][]string
	selects  map[string]int
	rejected []string
	info     []string
}

func (d *scriptedDriver) next(t string) (string, bool) {
	for key, queue := range d.answers {
		if !strings.HasPrefix(t, key) || len(queue) == 0 {
			continue
		}
		d.answers[key] = queue[1:]
		return queue[0], true
	}
	return "", false
}

func (d *scriptedDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	for {
		answer, ok := d.next(cfg.Message)
		if !ok {
			return cfg.Default, nil
		}
		if cfg.Validator != nil {
			if err := cfg.Validator(answer); err != nil {
				d.rejected = append(d.rejected, err.Error())
				continue
			}
		}
		return answer, nil
	}
}

func (d *scriptedDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	for key, idx := range d.selects {
		if strings.HasPrefix(cfg.Message, key) {
			return idx, nil
		}
	}
	return cfg.DefaultIndex, nil
}

func (d *scriptedDriver) Confirm(context.Context, ConfirmConfig) (bool, error) { return false, nil }

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.info = append(d.info, msg)
	return nil
}

func newCategory(t *testing.T) (*workflow.CategoryWorkflow, *memory.Store) {
	t.Helper()
	st := memory.New(memory.WithRecords(testsupport.MarketplaceRecords()...))
	w, err := workflow.NewCategory(workflow.Deps{Store: st, Clock: testsupport.NewFakeClock(time.Time{})})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	t.Cleanup(func() {
		w.Close()
		w.Wait()
	})
	return w, st
}

func TestSession_RepromptsOnLocalError(t *testing.T) {
	w, st := newCategory(t)
	driver := &scriptedDriver{answers: map[string][]string{
		"Category name": {"abc123", "Home Repair"},
	}}

	rec, err := NewSession(driver, w.Controller).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Name != "Home Repair" || st.Len(entity.Category) != 4 {
		t.Fatalf("unexpected result %+v", rec)
	}
	if len(driver.rejected) != 1 || driver.rejected[0] != "Category name cannot contain numbers" {
		t.Fatalf("unexpected rejections %v", driver.rejected)
	}
}

func TestSession_AsksAgainWhenNameTaken(t *testing.T) {
	w, _ := newCategory(t)
	driver := &scriptedDriver{answers: map[string][]string{
		"Category name": {"Plumbing", "Plumbing Works"},
	}}

	rec, err := NewSession(driver, w.Controller).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Name != "Plumbing Works" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(driver.info) != 1 || driver.info[0] != "Category name: A category with this name already exists" {
		t.Fatalf("unexpected info %v", driver.info)
	}
}

func TestSession_SelectChoices(t *testing.T) {
	st := memory.New(memory.WithRecords(testsupport.MarketplaceRecords()...))
	w, err := workflow.NewService(workflow.Deps{Store: st, Clock: testsupport.NewFakeClock(time.Time{})})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	defer func() {
		w.Close()
		w.Wait()
	}()
	options, err := w.CategoryOptions(context.Background())
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	choices := make([]Choice, 0, len(options))
	for _, o := range options {
		choices = append(choices, Choice{Value: o.Value, Label: o.Label})
	}

	driver := &scriptedDriver{
		answers: map[string][]string{
			"Service name": {"Garden Tidy"},
			"Price":        {"300"},
			"Duration":     {"60"},
		},
		selects: map[string]int{"Category": 0},
	}
	rec, err := NewSession(driver, w.Controller, WithChoices("category_id", choices)).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.CategoryID != "cat-cleaning" || rec.DurationMinutes != 60 {
		t.Fatalf("unexpected record %+v", rec)
	}
}
