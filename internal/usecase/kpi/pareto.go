package kpi

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/metrics"
	"factoryqc/internal/ports"
)

const (
	ParetoSourceDefectDetails = "defect_details"
	ParetoSourceEvents        = "inspection_events"
	ParetoSourceSummaries     = "summaries"
	ParetoSourceNone          = "none"
)

const unclassifiedDefect = "UNCLASSIFIED"

// RangeInput selects a date window plus the shared predicates.
type RangeInput struct {
	Range       string
	From        string
	To          string
	Shift       string
	LineCode    string
	MachineCode string
	Category    string
}

type ParetoDefect struct {
	DefectCode    string  `json:"defect_code"`
	DefectName    string  `json:"defect_name,omitempty"`
	Category      string  `json:"category,omitempty"`
	Quantity      int64   `json:"quantity"`
	Pct           float64 `json:"pct"`
	CumulativePct float64 `json:"cumulative_pct"`
}

type ParetoBucket struct {
	Key           string  `json:"key"`
	Name          string  `json:"name,omitempty"`
	Quantity      int64   `json:"quantity"`
	Pct           float64 `json:"pct"`
	CumulativePct float64 `json:"cumulative_pct"`
}

type ParetoMachinePart struct {
	MachineCode   string  `json:"machine_code"`
	MachineName   string  `json:"machine_name"`
	PartNumber    string  `json:"part_number"`
	ScrapQty      int64   `json:"scrap_qty"`
	ReworkQty     int64   `json:"rework_qty"`
	Quantity      int64   `json:"quantity"`
	Pct           float64 `json:"pct"`
	CumulativePct float64 `json:"cumulative_pct"`
}

type ParetoResult struct {
	Source        string              `json:"source"`
	From          string              `json:"from"`
	To            string              `json:"to"`
	Total         int64               `json:"total"`
	ByDefect      []ParetoDefect      `json:"by_defect"`
	ByCategory    []ParetoBucket      `json:"by_category"`
	ByMachine     []ParetoBucket      `json:"by_machine"`
	ByMachinePart []ParetoMachinePart `json:"by_machine_part"`
}

// Pareto walks the defect sources from the most detailed to the coarsest and
// answers from the first one with rows. An empty tier always falls through.
func (s *Service) Pareto(ctx context.Context, input RangeInput) (ParetoResult, error) {
	if err := checkContext(ctx); err != nil {
		return ParetoResult{}, err
	}
	if s.analytics == nil {
		return ParetoResult{}, errors.New("analytics repository is required")
	}

	filter, err := s.rangeFilter(input, quality.RangeMTD)
	if err != nil {
		return ParetoResult{}, err
	}
	result, err := s.pareto(ctx, filter)
	if err != nil {
		return ParetoResult{}, err
	}

	metrics.ParetoTier.WithLabelValues(result.Source).Inc()
	logging.Debug(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "pareto answered",
		slog.String("source", result.Source),
		slog.String("from", filter.From),
		slog.String("to", filter.To),
	)
	return result, nil
}

func (s *Service) pareto(ctx context.Context, filter ports.RangeFilter) (ParetoResult, error) {
	result := ParetoResult{
		Source:        ParetoSourceNone,
		From:          filter.From,
		To:            filter.To,
		ByDefect:      []ParetoDefect{},
		ByCategory:    []ParetoBucket{},
		ByMachine:     []ParetoBucket{},
		ByMachinePart: []ParetoMachinePart{},
	}

	rows, err := s.analytics.ParetoFromDefectDetails(ctx, filter)
	if err != nil {
		return ParetoResult{}, err
	}
	if len(rows) > 0 {
		result.Source = ParetoSourceDefectDetails
		fillDefectPareto(&result, rows)
		return result, nil
	}

	rows, err = s.analytics.ParetoFromEvents(ctx, filter)
	if err != nil {
		return ParetoResult{}, err
	}
	if len(rows) > 0 {
		result.Source = ParetoSourceEvents
		fillDefectPareto(&result, rows)
		return result, nil
	}

	coarse, err := s.analytics.ParetoFromSummaries(ctx, filter)
	if err != nil {
		return ParetoResult{}, err
	}
	if len(coarse) > 0 {
		result.Source = ParetoSourceSummaries
		fillMachinePartPareto(&result, coarse)
	}
	return result, nil
}

func fillDefectPareto(result *ParetoResult, rows []ports.ParetoRow) {
	defects := map[string]*ParetoDefect{}
	categories := map[string]*ParetoBucket{}
	machines := map[string]*ParetoBucket{}

	for _, row := range rows {
		result.Total += row.Quantity

		code := row.DefectCode
		if code == "" {
			code = unclassifiedDefect
		}
		d, ok := defects[code]
		if !ok {
			d = &ParetoDefect{DefectCode: code, DefectName: row.DefectName, Category: row.Category}
			defects[code] = d
		}
		d.Quantity += row.Quantity

		category := row.Category
		if category == "" {
			category = unclassifiedDefect
		}
		c, ok := categories[category]
		if !ok {
			c = &ParetoBucket{Key: category}
			categories[category] = c
		}
		c.Quantity += row.Quantity

		m, ok := machines[row.MachineCode]
		if !ok {
			m = &ParetoBucket{Key: row.MachineCode, Name: row.MachineName}
			machines[row.MachineCode] = m
		}
		m.Quantity += row.Quantity
	}

	result.ByDefect = make([]ParetoDefect, 0, len(defects))
	for _, d := range defects {
		result.ByDefect = append(result.ByDefect, *d)
	}
	sort.Slice(result.ByDefect, func(i, j int) bool {
		a, b := result.ByDefect[i], result.ByDefect[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.DefectCode < b.DefectCode
	})
	var running int64
	for i := range result.ByDefect {
		running += result.ByDefect[i].Quantity
		result.ByDefect[i].Pct = quality.Percent(result.ByDefect[i].Quantity, result.Total)
		result.ByDefect[i].CumulativePct = quality.Percent(running, result.Total)
	}

	result.ByCategory = rankBuckets(categories, result.Total)
	result.ByMachine = rankBuckets(machines, result.Total)
}

func fillMachinePartPareto(result *ParetoResult, rows []ports.MachinePartDefects) {
	machines := map[string]*ParetoBucket{}
	parts := make([]ParetoMachinePart, 0, len(rows))

	for _, row := range rows {
		qty := row.ScrapQty + row.ReworkQty
		result.Total += qty
		parts = append(parts, ParetoMachinePart{
			MachineCode: row.MachineCode,
			MachineName: row.MachineName,
			PartNumber:  row.PartNumber,
			ScrapQty:    row.ScrapQty,
			ReworkQty:   row.ReworkQty,
			Quantity:    qty,
		})

		m, ok := machines[row.MachineCode]
		if !ok {
			m = &ParetoBucket{Key: row.MachineCode, Name: row.MachineName}
			machines[row.MachineCode] = m
		}
		m.Quantity += qty
	}

	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Quantity != parts[j].Quantity {
			return parts[i].Quantity > parts[j].Quantity
		}
		if parts[i].MachineCode != parts[j].MachineCode {
			return parts[i].MachineCode < parts[j].MachineCode
		}
		return parts[i].PartNumber < parts[j].PartNumber
	})
	var running int64
	for i := range parts {
		running += parts[i].Quantity
		parts[i].Pct = quality.Percent(parts[i].Quantity, result.Total)
		parts[i].CumulativePct = quality.Percent(running, result.Total)
	}
	result.ByMachinePart = parts
	result.ByMachine = rankBuckets(machines, result.Total)
}

// rankBuckets orders by quantity desc then key and fills the percentages.
func rankBuckets(in map[string]*ParetoBucket, total int64) []ParetoBucket {
	out := make([]ParetoBucket, 0, len(in))
	for _, b := range in {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Key < out[j].Key
	})
	var running int64
	for i := range out {
		running += out[i].Quantity
		out[i].Pct = quality.Percent(out[i].Quantity, total)
		out[i].CumulativePct = quality.Percent(running, total)
	}
	return out
}

// rangeFilter resolves the date window in plant-local time and normalizes the predicates.
func (s *Service) rangeFilter(input RangeInput, fallback string) (ports.RangeFilter, error) {
	window, err := quality.ResolveRange(input.Range, input.From, input.To, s.now().In(s.settings.Location), fallback)
	if err != nil {
		return ports.RangeFilter{}, invalid(err)
	}
	shift, err := quality.NormalizeShift(input.Shift)
	if err != nil {
		return ports.RangeFilter{}, invalid(err)
	}
	return ports.RangeFilter{
		From:        window.From,
		To:          window.To,
		Shift:       shift,
		LineCode:    strings.TrimSpace(input.LineCode),
		MachineCode: strings.TrimSpace(input.MachineCode),
		Category:    strings.TrimSpace(input.Category),
	}, nil
}
