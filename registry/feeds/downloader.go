// Package feeds fetches and decodes the six registry CSV feeds: products,
// ingredients, prices, atc_links plus the two normalization dictionaries.
// Each feed comes from an ESKLP_* URL when configured, otherwise from a local
// file under the source data directory, which keeps offline runs working the
// same way the original updater did.
package feeds

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Feed file names, also used as local file names under the source dir.
const (
	FeedProducts          = "products"
	FeedIngredients       = "ingredients"
	FeedPrices            = "prices"
	FeedAtcLinks          = "atc_links"
	FeedInnSynonyms       = "inn_synonyms"
	FeedFormNormalization = "form_normalization"
)

// Config points each feed at its source. Empty URL means local file.
type Config struct {
	ProductsURL          string
	IngredientsURL       string
	PricesURL            string
	AtcLinksURL          string
	InnSynonymsURL       string
	FormNormalizationURL string

	SourceDir string
	Timeout   time.Duration
}

// ConfigFromEnv reads the feed endpoints from the environment, using the
// variable names the original updater established.
func ConfigFromEnv(sourceDir string) Config {
	return Config{
		ProductsURL:          os.Getenv("ESKLP_PRODUCTS_URL"),
		IngredientsURL:       os.Getenv("ESKLP_COMPOSITIONS_URL"),
		PricesURL:            os.Getenv("ESKLP_PRICES_URL"),
		AtcLinksURL:          os.Getenv("ESKLP_ATC_LINKS_URL"),
		InnSynonymsURL:       os.Getenv("ESKLP_INN_SYNONYMS_URL"),
		FormNormalizationURL: os.Getenv("ESKLP_FORM_NORMALIZATION_URL"),
		SourceDir:            sourceDir,
		Timeout:              5 * time.Minute,
	}
}

func (c Config) urlFor(feed string) string {
	switch feed {
	case FeedProducts:
		return c.ProductsURL
	case FeedIngredients:
		return c.IngredientsURL
	case FeedPrices:
		return c.PricesURL
	case FeedAtcLinks:
		return c.AtcLinksURL
	case FeedInnSynonyms:
		return c.InnSynonymsURL
	case FeedFormNormalization:
		return c.FormNormalizationURL
	default:
		return ""
	}
}

// fetch returns the decoded UTF-8 bytes of one feed, downloading it when a
// URL is configured and falling back to the local source file otherwise.
func (c Config) fetch(feed string) ([]byte, error) {
	url := c.urlFor(feed)
	if url == "" {
		return c.readLocal(feed)
	}

	client := &http.Client{Timeout: c.Timeout}
	response, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", feed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", feed, response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", feed, err)
	}

	return decodeToUTF8(body)
}

func (c Config) readLocal(feed string) ([]byte, error) {
	path := filepath.Clean(filepath.Join(c.SourceDir, feed+".csv"))
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no URL configured for %s and local file failed: %w", feed, err)
	}
	return decodeToUTF8(body)
}

// decodeToUTF8 sniffs the encoding: registry exports arrive as either UTF-8
// or Windows-1251.
func decodeToUTF8(body []byte) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	decoded, err := io.ReadAll(charmap.Windows1251.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode windows-1251 content: %w", err)
	}
	return decoded, nil
}
