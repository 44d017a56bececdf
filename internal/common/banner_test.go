package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowValue(rows [][2]string, key string) string {
	for _, r := range rows {
		if r[0] == key {
			return r[1]
		}
	}
	return ""
}

func TestBannerRows_ScanSettings(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Clients.Fallback = "eodhd"
	cfg.Scan.RefreshInterval = "15m"

	rows := bannerRows(cfg)
	assert.Equal(t, "yahoo (fallback eodhd)", rowValue(rows, "Provider"))
	assert.Equal(t, "8 default tickers", rowValue(rows, "Universe"))
	assert.Equal(t, "3-20% (preferred 5-10%)", rowValue(rows, "OTM band"))
	assert.Equal(t, "4 workers, 45s deadline, 0 retries", rowValue(rows, "Fan-out"))
	assert.Equal(t, "every 15m0s", rowValue(rows, "Rescan"))
}

func TestBannerRows_AnalysisDisabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Analysis.Enabled = false

	rows := bannerRows(cfg)
	assert.Equal(t, "rule-based only", rowValue(rows, "Analysis"))
	assert.Equal(t, "off", rowValue(rows, "Rescan"))
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	writeBanner(&buf, [][2]string{{"Provider", "yahoo"}})

	assert.Contains(t, buf.String(), "Cash-Secured Put Scanner")
	assert.Contains(t, buf.String(), "yahoo")
}
