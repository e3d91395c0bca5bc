package supplychain

import (
	"fmt"
	"regexp"

	"github.com/go-ego/gse"
	"github.com/go-ego/gse/hmm/idf"
)

// DefaultTopK is how many weighted keywords the generic extractor returns
const DefaultTopK = 20

// KeywordExtractor returns the topK most relevant keywords of text
type KeywordExtractor interface {
	Extract(text string, topK int) []string
}

// GseExtractor ranks keywords by TF-IDF over a segmented sentence
type GseExtractor struct {
	te idf.TagExtracter
}

// NewGseExtractor loads the embedded dictionary and IDF table
func NewGseExtractor() (*GseExtractor, error) {
	var seg gse.Segmenter
	if err := seg.LoadDictEmbed(); err != nil {
		return nil, fmt.Errorf("load segmenter dictionary: %w", err)
	}

	e := &GseExtractor{}
	e.te.WithGse(seg)
	if err := e.te.LoadIdfStr(gse.ZhIdf); err != nil {
		return nil, fmt.Errorf("load idf table: %w", err)
	}
	return e, nil
}

// Extract implements KeywordExtractor
func (e *GseExtractor) Extract(text string, topK int) []string {
	tags := e.te.ExtractTags(text, topK)

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.Text)
	}
	return out
}

// NopExtractor extracts nothing; domain patterns and aliases still apply
type NopExtractor struct{}

// Extract implements KeywordExtractor
func (NopExtractor) Extract(string, int) []string { return nil }

// techPatterns are the technology-domain term families
var techPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)GPU|TPU|芯片|半导体|人工智能|AI|深度学习|机器学习`),
	regexp.MustCompile(`(?i)自动驾驶|电动汽车|新能源|电池`),
	regexp.MustCompile(`(?i)显示屏|摄像头|传感器|光学`),
	regexp.MustCompile(`(?i)云计算|数据中心|服务器`),
	regexp.MustCompile(`(?i)5G|6G|通信|网络`),
}

// domainTerms returns every technology term in text, in pattern then position order
func domainTerms(text string) []string {
	var out []string
	for _, p := range techPatterns {
		out = append(out, p.FindAllString(text, -1)...)
	}
	return out
}
