package filesource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"marketfeatures/internal/model"
)

var contractAliases = map[string][]string{
	"symbol":     {"contract", "contract_symbol", "contractsymbol", "symbol"},
	"expiration": {"expiration", "expiry", "expiration_date"},
	"strike":     {"strike", "strike_price"},
	"type":       {"type", "option_type", "right"},
	"volume":     {"volume"},
	"oi":         {"open_interest", "openinterest", "oi"},
	"iv":         {"implied_volatility", "impliedvolatility", "iv"},
	"delta":      {"delta"},
	"gamma":      {"gamma"},
	"itm":        {"in_the_money", "inthemoney", "itm"},
}

// LoadContracts reads an option-chain CSV with a header row. expiration,
// strike and type are required; a missing volume or open interest is 0 and a
// missing greek or implied volatility stays undefined.
func LoadContracts(r io.Reader) ([]model.OptionContract, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read chain csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := headerIndex(records[0], contractAliases, "expiration", "strike", "type")
	if err != nil {
		return nil, fmt.Errorf("chain header: %w", err)
	}

	out := make([]model.OptionContract, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		if blankRecord(records[i]) {
			continue
		}
		c, err := parseContract(records[i], cols)
		if err != nil {
			return nil, fmt.Errorf("chain row %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadContractsFile loads an option-chain CSV from path.
func LoadContractsFile(path string) ([]model.OptionContract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadContracts(f)
}

func parseContract(rec []string, cols map[string]int) (model.OptionContract, error) {
	var c model.OptionContract
	var err error

	if idx, ok := cols["symbol"]; ok {
		c.Symbol = strings.TrimSpace(field(rec, idx))
	}
	if c.Expiration, err = parseTime(field(rec, cols["expiration"])); err != nil {
		return c, fmt.Errorf("expiration: %w", err)
	}
	if c.Strike, err = parseFloat(field(rec, cols["strike"])); err != nil {
		return c, fmt.Errorf("strike: %w", err)
	}
	if c.Type, err = model.ParseOptionType(field(rec, cols["type"])); err != nil {
		return c, err
	}

	if c.Volume, err = optionalFloat(rec, cols, "volume"); err != nil {
		return c, err
	}
	if c.OpenInterest, err = optionalFloat(rec, cols, "oi"); err != nil {
		return c, err
	}
	if c.ImpliedVolatility, err = optionalValue(rec, cols, "iv"); err != nil {
		return c, err
	}
	if c.Delta, err = optionalValue(rec, cols, "delta"); err != nil {
		return c, err
	}
	if c.Gamma, err = optionalValue(rec, cols, "gamma"); err != nil {
		return c, err
	}
	if idx, ok := cols["itm"]; ok {
		if raw := field(rec, idx); !missing(raw) {
			if c.InTheMoney, err = strconv.ParseBool(strings.TrimSpace(raw)); err != nil {
				return c, fmt.Errorf("in_the_money: %w", err)
			}
		}
	}
	return c, nil
}

func optionalFloat(rec []string, cols map[string]int, name string) (float64, error) {
	v, err := optionalValue(rec, cols, name)
	return v.Or(0), err
}

func optionalValue(rec []string, cols map[string]int, name string) (model.Value, error) {
	idx, ok := cols[name]
	if !ok {
		return model.None(), nil
	}
	raw := field(rec, idx)
	if missing(raw) {
		return model.None(), nil
	}
	f, err := parseFloat(raw)
	if err != nil {
		return model.None(), fmt.Errorf("%s: %w", name, err)
	}
	return model.Some(f), nil
}
