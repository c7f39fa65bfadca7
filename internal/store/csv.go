package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/merchkit/recsys/pkg/models"
)

// CSV loaders for the flat data files the catalog and interaction
// collaborators export (products.csv, interactions.csv, users.csv).
// Columns are resolved by header name, so extra columns are ignored.

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadProductsCSV reads a product catalog export.
func LoadProductsCSV(path string) ([]models.Product, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	for i, row := range rows {
		p := models.Product{
			Name:     field(row, header, "name"),
			Category: field(row, header, "category"),
			Brand:    field(row, header, "brand"),
		}
		if p.ID, err = strconv.ParseInt(field(row, header, "product_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad product_id: %w", path, i+2, err)
		}
		if p.Price, err = strconv.ParseFloat(field(row, header, "price"), 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad price: %w", path, i+2, err)
		}
		if p.Rating, err = strconv.ParseFloat(field(row, header, "rating"), 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad rating: %w", path, i+2, err)
		}
		if v := field(row, header, "num_reviews"); v != "" {
			if p.ReviewCount, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("%s row %d: bad num_reviews: %w", path, i+2, err)
			}
		}
		products = append(products, p)
	}
	return products, nil
}

// LoadInteractionsCSV reads an interaction log export. The exporter's
// event names addtocart and transaction map onto cart and purchase.
func LoadInteractionsCSV(path string) ([]models.Interaction, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var interactions []models.Interaction
	for i, row := range rows {
		var in models.Interaction
		if in.UserID, err = strconv.ParseInt(field(row, header, "user_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad user_id: %w", path, i+2, err)
		}
		if in.ItemID, err = strconv.ParseInt(field(row, header, "product_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad product_id: %w", path, i+2, err)
		}
		in.Action = parseAction(field(row, header, "event"))
		if !in.Action.Valid() {
			return nil, fmt.Errorf("%s row %d: unknown event %q", path, i+2, field(row, header, "event"))
		}
		if ts := field(row, header, "timestamp"); ts != "" {
			if in.Timestamp, err = parseTimestamp(ts); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
			}
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}

// LoadUsersCSV reads the user table export; only user_id matters to the
// engine.
func LoadUsersCSV(path string) ([]models.User, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var users []models.User
	for i, row := range rows {
		var u models.User
		if u.ID, err = strconv.ParseInt(field(row, header, "user_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("%s row %d: bad user_id: %w", path, i+2, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func parseAction(event string) models.Action {
	switch event {
	case "view":
		return models.ActionView
	case "cart", "addtocart":
		return models.ActionCart
	case "purchase", "transaction":
		return models.ActionPurchase
	}
	return models.Action(event)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[name] = i
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func field(row []string, header map[string]int, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
