package sina

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/httputil"
	"github.com/wonny/stocklens/pkg/logger"
)

// Page labels on the corp-info pages
const (
	labelFullName   = "公司名称"
	labelListDate   = "上市日期"
	labelRegAddress = "注册地址"
	headerConcepts  = "所属概念板块"
	headerBoardName = "板块名称"
)

// Client scrapes company profile pages from Sina Finance
// ⭐ SSOT: Sina 회사 개요 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Sina profile client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("sina"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchProfile reads the corp-info page (name, listing date, address)
// and the related-info page (concept boards)
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error) {
	info, err := c.fetchDocument(ctx, fmt.Sprintf("%s/corp/go.php/vCI_CorpInfo/stockid/%s.phtml", c.baseURL, symbol))
	if err != nil {
		return nil, fmt.Errorf("corp info %s: %w", symbol, err)
	}

	profile := parseCorpInfo(info)
	if profile.FullName == "" {
		return nil, contracts.ErrNotFound
	}

	related, err := c.fetchDocument(ctx, fmt.Sprintf("%s/corp/go.php/vCI_CorpXiangGuan/stockid/%s.phtml", c.baseURL, symbol))
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Concept page unavailable")
		return profile, nil
	}
	profile.ConceptTags = parseConcepts(related)

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"concepts": len(profile.ConceptTags),
	}).Debug("Fetched company profile")

	return profile, nil
}

// fetchDocument downloads a GBK page and parses it
func (c *Client) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.httpClient.Get(ctx, url)
	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}

	utf8, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode GBK: %w", err)
	}

	return goquery.NewDocumentFromReader(bytes.NewReader(utf8))
}

// parseCorpInfo walks label/value cell pairs of the #comInfo1 table
func parseCorpInfo(doc *goquery.Document) *contracts.CompanyProfile {
	profile := &contracts.CompanyProfile{}

	doc.Find("#comInfo1 td").Each(func(_ int, cell *goquery.Selection) {
		label := strings.TrimRight(strings.TrimSpace(cell.Text()), "：:")
		value := strings.TrimSpace(cell.Next().Text())
		if value == "" {
			return
		}

		switch label {
		case labelFullName:
			profile.FullName = value
		case labelListDate:
			if d, err := time.Parse(contracts.DateLayout, value); err == nil {
				profile.ListDate = &d
			}
		case labelRegAddress:
			profile.Region = regionOf(value)
		}
	})

	return profile
}

// parseConcepts collects board names listed under the concept header
func parseConcepts(doc *goquery.Document) []string {
	var tags []string

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if tags != nil || !strings.Contains(table.Find("tr").First().Text(), headerConcepts) {
			return
		}

		tags = []string{}
		table.Find("tr").Each(func(i int, tr *goquery.Selection) {
			name := strings.TrimSpace(tr.Find("td").First().Text())
			if name == "" || strings.Contains(name, headerConcepts) || name == headerBoardName {
				return
			}
			tags = append(tags, name)
		})
	})

	return contracts.NormalizeConceptTags(tags, contracts.MaxConceptTags)
}

// regionOf keeps the province or municipality prefix of a registered address
func regionOf(address string) string {
	for _, suffix := range []string{"自治区", "省", "市"} {
		if i := strings.Index(address, suffix); i > 0 {
			return address[:i+len(suffix)]
		}
	}
	return ""
}
