package ticketsig

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mahdiidarabi/ticketsig/internal/parser"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
)

// RequestParser defines the interface for reading redemption requests from
// various sources.
type RequestParser interface {
	// ParseRequests reads every request from source.
	ParseRequests(source string) ([]*redeem.Request, error)
}

// JSONParser parses request files holding a JSON array of objects.
type JSONParser struct {
	// Hasher hashes plain "metadata" fields (default: Keccak256).
	Hasher eip712.Hasher
}

// ParseRequests parses requests from a JSON file.
//
// Expected format:
//
//	[
//	  {"ticket_id": "1", "owner": "0x...", "nonce": "0", "deadline": "1700003600",
//	   "metadata_hash": "0x...", "signature": "0x..."}
//	]
func (p *JSONParser) ParseRequests(jsonFile string) ([]*redeem.Request, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()
	return p.Decode(file)
}

// Decode parses requests from r.
func (p *JSONParser) Decode(r io.Reader) ([]*redeem.Request, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var items []map[string]interface{}
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	h := hasherOrDefault(p.Hasher)
	requests := make([]*redeem.Request, 0, len(items))
	for i, item := range items {
		req, err := parser.Request(parser.Record(item), h)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// CSVParser parses request files with a header row.
type CSVParser struct {
	// Hasher hashes plain "metadata" columns (default: Keccak256).
	Hasher eip712.Hasher
}

// ParseRequests parses requests from a CSV file.
func (p *CSVParser) ParseRequests(csvFile string) ([]*redeem.Request, error) {
	file, err := os.Open(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return p.Decode(file)
}

// Decode parses requests from r.
func (p *CSVParser) Decode(r io.Reader) ([]*redeem.Request, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	h := hasherOrDefault(p.Hasher)
	var requests []*redeem.Request
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		rec := make(parser.Record, len(header))
		for i, col := range header {
			if i < len(record) {
				rec[col] = record[i]
			}
		}
		req, err := parser.Request(rec, h)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// ParserForFile picks a parser from the file extension. Unknown extensions
// are read as JSON.
func ParserForFile(path string, h eip712.Hasher) RequestParser {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return &CSVParser{Hasher: h}
	}
	return &JSONParser{Hasher: h}
}

func hasherOrDefault(h eip712.Hasher) eip712.Hasher {
	if h == nil {
		return eip712.Keccak256{}
	}
	return h
}
