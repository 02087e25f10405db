package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
)

// ErrEmpty indicates that the dataset contained no usable rows.
var ErrEmpty = errors.New("catalog: dataset is empty")

// Product is one row of the skincare product dataset.
type Product struct {
	Name  string
	URL   string
	Type  string
	Price string
}

// Catalog holds the loaded product dataset.
type Catalog struct {
	products []Product
}

// Load reads the dataset CSV from disk.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the dataset from a reader. The first row is the header and
// must include product_name, product_url, product_type and price columns.
func Parse(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"product_name", "product_url", "product_type", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog: missing column %q", required)
		}
	}

	var products []Product
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row: %w", err)
		}

		p := Product{
			Name:  field(record, cols["product_name"]),
			URL:   field(record, cols["product_url"]),
			Type:  field(record, cols["product_type"]),
			Price: field(record, cols["price"]),
		}
		if p.Name == "" {
			continue
		}
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, ErrEmpty
	}
	return &Catalog{products: products}, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Len reports the number of products in the dataset.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Sample returns up to n products in random order.
func (c *Catalog) Sample(n int) []Product {
	if n <= 0 {
		return nil
	}
	if n > len(c.products) {
		n = len(c.products)
	}

	picked := make([]Product, len(c.products))
	copy(picked, c.products)
	rand.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:n]
}

// ByType returns products whose type matches (case-insensitive).
func (c *Catalog) ByType(productType string) []Product {
	want := strings.ToLower(strings.TrimSpace(productType))
	var out []Product
	for _, p := range c.products {
		if strings.ToLower(p.Type) == want {
			out = append(out, p)
		}
	}
	return out
}

// PreviewCSV renders the products back into the compact CSV form embedded
// in recommendation prompts.
func PreviewCSV(products []Product) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"product_name", "product_url", "product_type", "price"})
	for _, p := range products {
		_ = w.Write([]string{p.Name, p.URL, p.Type, p.Price})
	}
	w.Flush()
	return b.String()
}
