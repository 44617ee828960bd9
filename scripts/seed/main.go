// Package main seeds a local open-commerce-search setup with a generated
// catalog. Products are pushed through the indexer API as a full import, and
// matching suggest records are written to Redis or to a suggest data file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	pkgconfig "github.com/SrinivasareddyGatla/open-commerce-search/pkg/config"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/database"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/httpclient"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/logger"
	"github.com/SrinivasareddyGatla/open-commerce-search/pkg/slug"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// --------------------------------------------------------------------------
// Indexer API client
// --------------------------------------------------------------------------

type importSession struct {
	FinalIndexName     string `json:"finalIndexName"`
	TemporaryIndexName string `json:"temporaryIndexName"`
}

type indexerClient struct {
	baseURL string
	http    *httpclient.Client
}

func (c *indexerClient) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.PostJSON(ctx, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 400 {
		return httpclient.ParseResponseError(resp, "indexer")
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *indexerClient) fullImport(ctx context.Context, log *slog.Logger, index, locale string, products []product, batchSize int) error {
	var sess importSession
	path := "/indexer-api/v1/full/start/" + index + "?locale=" + locale
	if err := c.post(ctx, path, nil, &sess); err != nil {
		return fmt.Errorf("start import: %w", err)
	}
	log.Info("import session started", slog.String("temporary_index", sess.TemporaryIndexName))

	for start := 0; start < len(products); start += batchSize {
		batch := products[start:min(start+batchSize, len(products))]
		body := map[string]any{"session": sess, "documents": batch}
		if err := c.post(ctx, "/indexer-api/v1/full/add", body, nil); err != nil {
			if cerr := c.post(ctx, "/indexer-api/v1/full/cancel", sess, nil); cerr != nil {
				log.Warn("cancel import failed", slog.String("error", cerr.Error()))
			}
			return fmt.Errorf("add batch at %d: %w", start, err)
		}
		log.Info("batch indexed", slog.Int("from", start), slog.Int("count", len(batch)))
	}

	if err := c.post(ctx, "/indexer-api/v1/full/done", sess, nil); err != nil {
		return fmt.Errorf("finish import: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Catalog generation
// --------------------------------------------------------------------------

// The JSON shape of the indexer's product documents.
type category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type document struct {
	ID         string         `json:"id"`
	Data       map[string]any `json:"data,omitempty"`
	Categories [][]category   `json:"categories,omitempty"`
}

type product struct {
	document
	Variants []document `json:"variants,omitempty"`
}

type topCategory struct {
	Name   string
	Weight float64 // share of all products
	Leaves map[string][]string
}

var topCategories = []topCategory{
	{
		Name:   "Clothing",
		Weight: 0.35,
		Leaves: map[string][]string{
			"Dresses":  {"Maxi Dress", "Midi Dress", "Knit Dress", "Shirt Dress"},
			"Jackets":  {"Rain Jacket", "Bomber Jacket", "Denim Jacket", "Parka"},
			"Sweaters": {"Wool Sweater", "Cardigan", "Turtleneck"},
			"Trousers": {"Slim Fit Jeans", "Chinos", "Jogger Pants", "Wide Leg Jeans"},
		},
	},
	{
		Name:   "Shoes",
		Weight: 0.25,
		Leaves: map[string][]string{
			"Sneakers": {"Running Shoes", "Casual Sneakers", "Trail Runners"},
			"Boots":    {"Chelsea Boots", "Hiking Boots", "Ankle Boots"},
			"Sandals":  {"Slide Sandals", "Sport Sandals"},
		},
	},
	{
		Name:   "Sports & Outdoors",
		Weight: 0.2,
		Leaves: map[string][]string{
			"Camping": {"Camping Tent", "Sleeping Bag", "Camping Stove"},
			"Fitness": {"Yoga Mat", "Resistance Bands", "Dumbbell Set"},
		},
	},
	{
		Name:   "Home & Kitchen",
		Weight: 0.2,
		Leaves: map[string][]string{
			"Cookware":   {"Cast Iron Skillet", "Cookware Set", "Dutch Oven"},
			"Appliances": {"Coffee Maker", "Blender", "Toaster"},
		},
	},
}

var (
	brands   = []string{"Northwind", "Alpine Co", "Urban Thread", "Solstice", "Kestrel", "Hearth & Home", "Velo", "Marlow"}
	colors   = []string{"Black", "Navy", "Grey", "Olive", "Red", "White", "Beige", "Burgundy"}
	sizes    = []string{"XS", "S", "M", "L", "XL"}
	prefixes = []string{"Classic", "Essential", "Premium", "Lightweight", "Everyday", "Pro"}
)

// productID is stable across runs so re-seeding replaces documents.
func productID(index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ocs-seed-product:"+strconv.Itoa(index))).String()
}

type catalogStats struct {
	brands     map[string]int64
	categories map[string]int64
	types      map[string]int64
}

func generate(rng *rand.Rand, total int) ([]product, catalogStats) {
	stats := catalogStats{
		brands:     map[string]int64{},
		categories: map[string]int64{},
		types:      map[string]int64{},
	}
	products := make([]product, 0, total)

	remaining := total
	for ti, top := range topCategories {
		count := int(float64(total) * top.Weight)
		if ti == len(topCategories)-1 {
			count = remaining
		}
		remaining -= count

		leaves := make([]string, 0, len(top.Leaves))
		for leaf := range top.Leaves {
			leaves = append(leaves, leaf)
		}
		slices.Sort(leaves)

		for j := 0; j < count; j++ {
			i := len(products)
			leaf := leaves[j%len(leaves)]
			types := top.Leaves[leaf]
			kind := types[rng.Intn(len(types))]
			brand := brands[i%len(brands)]
			title := fmt.Sprintf("%s %s %s", brand, prefixes[rng.Intn(len(prefixes))], kind)
			basePrice := float64(1990+rng.Intn(24000)) / 100

			id := productID(i)
			p := product{document: document{
				ID: id,
				Data: map[string]any{
					"name":       title,
					"brand":      brand,
					"popularity": rng.Intn(1000),
					"price":      basePrice,
					"url":        "/p/" + slug.Generate(title) + "-" + strconv.Itoa(i),
				},
				Categories: [][]category{{
					{ID: slug.Generate(top.Name), Name: top.Name},
					{ID: slug.Path(top.Name, leaf), Name: leaf},
				}},
			}}

			for k, color := range pick(rng, colors, 1+rng.Intn(3)) {
				for _, size := range pick(rng, sizes, 2+rng.Intn(3)) {
					p.Variants = append(p.Variants, document{
						ID: fmt.Sprintf("%s-%d-%s", id, k, strings.ToLower(size)),
						Data: map[string]any{
							"color": color,
							"size":  size,
							"price": basePrice + float64(rng.Intn(5)*5),
						},
					})
				}
			}

			products = append(products, p)
			stats.brands[brand]++
			stats.categories[leaf]++
			stats.types[kind]++
		}
	}
	return products, stats
}

func pick(rng *rand.Rand, from []string, n int) []string {
	idx := rng.Perm(len(from))[:min(n, len(from))]
	slices.Sort(idx)
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

// --------------------------------------------------------------------------
// Suggest records
// --------------------------------------------------------------------------

// suggestRecord matches the record layout read by the suggest service.
type suggestRecord struct {
	Label   string            `json:"label" yaml:"label"`
	Weight  int64             `json:"weight" yaml:"weight"`
	Sharpen []string          `json:"sharpen,omitempty" yaml:"sharpen,omitempty"`
	Tags    []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Payload map[string]string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func suggestRecords(stats catalogStats) []suggestRecord {
	var records []suggestRecord
	add := func(counts map[string]int64, kind string, sharpen bool) {
		for label, n := range counts {
			r := suggestRecord{
				Label:   label,
				Weight:  n,
				Tags:    []string{kind},
				Payload: map[string]string{"type": kind, "url": "/s/" + slug.Generate(label)},
			}
			if sharpen {
				r.Sharpen = []string{strings.ToLower(strings.Fields(label)[0])}
			}
			records = append(records, r)
		}
	}
	add(stats.brands, "brand", true)
	add(stats.categories, "category", false)
	add(stats.types, "product", false)

	slices.SortFunc(records, func(a, b suggestRecord) int {
		return strings.Compare(a.Label, b.Label)
	})
	return records
}

func writeSuggestRedis(ctx context.Context, client redis.UniversalClient, index string, records []suggestRecord) error {
	key := "ocs:suggest:" + index
	values := make([]any, 0, 2*len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		values = append(values, r.Label, string(data))
	}
	_, err := client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, values...)
		return nil
	})
	return err
}

func writeSuggestFile(path, index string, records []suggestRecord) error {
	data, err := yaml.Marshal(map[string]any{"indexes": map[string][]suggestRecord{index: records}})
	if err != nil {
		return fmt.Errorf("marshal suggest file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// --------------------------------------------------------------------------
// main
// --------------------------------------------------------------------------

func main() {
	log := logger.New("seed", getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", logger.FormatText))

	searchURL := getEnv("SEARCH_URL", "http://localhost:8010")
	index := getEnv("SEED_INDEX", "demo-products")
	locale := getEnv("SEED_LOCALE", "en")
	total := getEnvInt("SEED_PRODUCTS", 500)
	batchSize := getEnvInt("SEED_BATCH_SIZE", 200)
	suggestTarget := getEnv("SEED_SUGGEST", "redis")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	rng := rand.New(rand.NewSource(42))
	products, stats := generate(rng, total)
	log.Info("catalog generated",
		slog.Int("products", len(products)),
		slog.Int("brands", len(stats.brands)),
		slog.Int("categories", len(stats.categories)),
	)

	httpCfg := httpclient.DefaultConfig()
	httpCfg.BearerToken = os.Getenv("INDEXER_API_TOKEN")
	httpCfg.UserAgent = "ocs-seed"
	client := &indexerClient{
		baseURL: strings.TrimRight(searchURL, "/"),
		http:    httpclient.New(httpCfg),
	}
	if err := client.fullImport(ctx, log, index, locale, products, batchSize); err != nil {
		log.Error("full import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("full import published", slog.String("index", index))

	records := suggestRecords(stats)
	switch suggestTarget {
	case "redis":
		var cfg database.RedisConfig
		if err := pkgconfig.Load(&cfg); err != nil {
			log.Error("redis config", slog.String("error", err.Error()))
			os.Exit(1)
		}
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Error("connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rdb.Close()
		if err := writeSuggestRedis(ctx, rdb, index, records); err != nil {
			log.Error("write suggest records", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "file":
		path := getEnv("SEED_SUGGEST_FILE", "config/suggest.yaml")
		if err := writeSuggestFile(path, index, records); err != nil {
			log.Error("write suggest file", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "none":
	default:
		log.Error("unknown SEED_SUGGEST target", slog.String("target", suggestTarget))
		os.Exit(1)
	}
	log.Info("suggest records written", slog.Int("records", len(records)), slog.String("target", suggestTarget))
}
