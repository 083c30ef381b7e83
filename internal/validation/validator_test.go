package validation

import (
	"errors"
	"testing"

	"factoryqc/internal/errs"
)

type samplePayload struct {
	MachineCode string `json:"machine_code" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gte=0"`
	Date        string `json:"production_date" validate:"ymd"`
	Shift       string `json:"shift" validate:"max=16"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(samplePayload{Quantity: -1, Date: "2026/03/01"})
	if err == nil {
		t.Fatalf("Struct() error = nil")
	}
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("KindOf() = %s", errs.KindOf(err))
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error is not *RequestError: %T", err)
	}
	fields := map[string]string{}
	for _, f := range reqErr.Fields {
		fields[f.Field] = f.Tag
	}
	if fields["machine_code"] != "required" || fields["quantity"] != "gte" || fields["production_date"] != "ymd" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	if err := Struct(samplePayload{MachineCode: "M-01", Date: "2026-03-01", Shift: "A"}); err != nil {
		t.Fatalf("Struct() error = %v", err)
	}
}
