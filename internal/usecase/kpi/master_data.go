package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

type SeedProductLine struct {
	Code string `yaml:"code" toml:"code"`
	Name string `yaml:"name" toml:"name"`
}

type SeedMachine struct {
	Code        string `yaml:"code" toml:"code"`
	Name        string `yaml:"name" toml:"name"`
	ProductLine string `yaml:"product_line" toml:"product_line"`
	Active      *bool  `yaml:"active" toml:"active"`
}

type SeedDefectCode struct {
	Code     string `yaml:"code" toml:"code"`
	Name     string `yaml:"name" toml:"name"`
	Category string `yaml:"category" toml:"category"`
}

// MasterDataSeed is the on-disk master data document.
type MasterDataSeed struct {
	ProductLines []SeedProductLine `yaml:"product_lines" toml:"product_lines"`
	Machines     []SeedMachine     `yaml:"machines" toml:"machines"`
	DefectCodes  []SeedDefectCode  `yaml:"defect_codes" toml:"defect_codes"`
}

type SeedResult struct {
	ProductLines int `json:"product_lines"`
	Machines     int `json:"machines"`
	DefectCodes  int `json:"defect_codes"`
}

// LoadSeedFile parses a YAML (.yaml/.yml) or TOML (.toml) master data file.
func LoadSeedFile(path string) (MasterDataSeed, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return MasterDataSeed{}, errs.Validation("seed file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return MasterDataSeed{}, errs.Wrapf(err, "read seed file %q", path)
	}

	var seed MasterDataSeed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(raw, &seed); err != nil {
			return MasterDataSeed{}, errs.As(errs.KindValidation, errs.Wrapf(err, "parse toml seed %q", path))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return MasterDataSeed{}, errs.As(errs.KindValidation, errs.Wrapf(err, "parse yaml seed %q", path))
		}
	default:
		return MasterDataSeed{}, errs.Validation("unsupported seed file extension %q", filepath.Ext(path))
	}
	return seed, nil
}

func validateSeed(seed MasterDataSeed) error {
	lines := map[string]bool{}
	for i, l := range seed.ProductLines {
		if strings.TrimSpace(l.Code) == "" {
			return errs.Validation("product_lines[%d].code is required", i)
		}
		lines[strings.TrimSpace(l.Code)] = true
	}
	for i, m := range seed.Machines {
		if strings.TrimSpace(m.Code) == "" {
			return errs.Validation("machines[%d].code is required", i)
		}
		if line := strings.TrimSpace(m.ProductLine); line != "" && !lines[line] {
			return errs.Validation("machines[%d]: product line %q is not declared", i, line)
		}
	}
	for i, d := range seed.DefectCodes {
		if strings.TrimSpace(d.Code) == "" {
			return errs.Validation("defect_codes[%d].code is required", i)
		}
	}
	return nil
}

// SeedMasterData upserts every entry by code in one transaction.
func (s *Service) SeedMasterData(ctx context.Context, seed MasterDataSeed) (SeedResult, error) {
	if err := checkContext(ctx); err != nil {
		return SeedResult{}, err
	}
	if err := s.requireWrite(); err != nil {
		return SeedResult{}, err
	}
	if err := validateSeed(seed); err != nil {
		return SeedResult{}, err
	}

	var result SeedResult
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		lineIDs := map[string]uint64{}
		for _, l := range seed.ProductLines {
			stored, err := s.master.UpsertProductLine(txCtx, ports.ProductLine{
				Code: strings.TrimSpace(l.Code),
				Name: strings.TrimSpace(l.Name),
			})
			if err != nil {
				return errs.Wrapf(err, "upsert product line %s", l.Code)
			}
			lineIDs[stored.Code] = stored.ID
			result.ProductLines++
		}

		for _, m := range seed.Machines {
			machine := ports.Machine{
				Code:   strings.TrimSpace(m.Code),
				Name:   strings.TrimSpace(m.Name),
				Active: m.Active == nil || *m.Active,
			}
			if line := strings.TrimSpace(m.ProductLine); line != "" {
				id := lineIDs[line]
				machine.ProductLineID = &id
				machine.ProductLineCode = line
			}
			if _, err := s.master.UpsertMachine(txCtx, machine); err != nil {
				return errs.Wrapf(err, "upsert machine %s", m.Code)
			}
			result.Machines++
		}

		for _, d := range seed.DefectCodes {
			if _, err := s.master.UpsertDefectCode(txCtx, ports.DefectCode{
				Code:     strings.TrimSpace(d.Code),
				Name:     strings.TrimSpace(d.Name),
				Category: strings.TrimSpace(d.Category),
			}); err != nil {
				return errs.Wrapf(err, "upsert defect code %s", d.Code)
			}
			result.DefectCodes++
		}
		return nil
	}); err != nil {
		return SeedResult{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "master data seeded",
		slog.Int("product_lines", result.ProductLines),
		slog.Int("machines", result.Machines),
		slog.Int("defect_codes", result.DefectCodes),
	)
	return result, nil
}

func (s *Service) ListMachines(ctx context.Context) ([]MachineView, error) {
	if err := s.requireRead(ctx); err != nil {
		return nil, err
	}
	items, err := s.master.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MachineView, 0, len(items))
	for _, m := range items {
		out = append(out, MachineView{
			ID:              m.ID,
			Code:            m.Code,
			Name:            m.Name,
			ProductLineCode: m.ProductLineCode,
			Active:          m.Active,
		})
	}
	return out, nil
}

func (s *Service) ListDefectCodes(ctx context.Context) ([]DefectCodeView, error) {
	if err := s.requireRead(ctx); err != nil {
		return nil, err
	}
	items, err := s.master.ListDefectCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DefectCodeView, 0, len(items))
	for _, d := range items {
		out = append(out, DefectCodeView{ID: d.ID, Code: d.Code, Name: d.Name, Category: d.Category})
	}
	return out, nil
}

func (s *Service) ListProductLines(ctx context.Context) ([]ProductLineView, error) {
	if err := s.requireRead(ctx); err != nil {
		return nil, err
	}
	items, err := s.master.ListProductLines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductLineView, 0, len(items))
	for _, l := range items {
		out = append(out, ProductLineView{ID: l.ID, Code: l.Code, Name: l.Name})
	}
	return out, nil
}

func (s *Service) requireRead(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.master == nil {
		return errors.New("master data repository is required")
	}
	return nil
}

// String renders a short seed summary for the CLI.
func (r SeedResult) String() string {
	return fmt.Sprintf("product_lines=%d machines=%d defect_codes=%d", r.ProductLines, r.Machines, r.DefectCodes)
}
