// Package extract 从 PDF 文件、粘贴文本与网页中抽取文档内容，
// 并派生目标集合名称。
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/utils/errors"
	"github.com/kart-io/docchat/pkg/utils/httpclient"
)

// 来源类型。
const (
	TypePDF     = "pdf"
	TypeText    = "text"
	TypeWebsite = "website"
)

// SourcePasted 粘贴文本的来源标识。
const SourcePasted = "pasted"

// 网页抽取时移除的无关元素选择器。
const strippedSelectors = "script, style, nav, header, footer, .advertisement, .ads"

// Document 表示一段抽取出的文档内容及其来源信息。
type Document struct {
	// Content 文本内容。
	Content string
	// Source 来源标识（文件名、URL 或 pasted）。
	Source string
	// Type 来源类型。
	Type string
	// Domain 网页来源的域名。
	Domain string
	// Title 网页标题。
	Title string
	// Path 网页来源的路径。
	Path string
	// Page PDF 页码，从 1 开始。
	Page int
}

// Input 表示一次抽取请求，三种来源互斥，按字段顺序取第一个非空来源。
type Input struct {
	// FileName 上传文件名。
	FileName string
	// FileData 上传文件内容。
	FileData []byte
	// Content 粘贴的文本内容。
	Content string
	// URL 网页地址。
	URL string
	// Collection 调用方指定的集合名，为空时自动派生。
	Collection string
}

// Result 表示抽取结果。
type Result struct {
	// Collection 派生或指定的集合名称。
	Collection string
	// SourceURL 网页来源的原始 URL，其他来源为空。
	SourceURL string
	// Documents 抽取出的文档列表。
	Documents []*Document
}

// Extractor 负责内容抽取。
type Extractor struct {
	httpClient *httpclient.Client
	now        func() time.Time
}

// NewExtractor 创建抽取器实例。网页抓取对网络错误和 5xx 自动重试。
func NewExtractor() *Extractor {
	return &Extractor{
		httpClient: httpclient.NewClient(30*time.Second, 2),
		now:        time.Now,
	}
}

// Extract 根据输入类型抽取文档内容。
func (e *Extractor) Extract(ctx context.Context, in *Input) (*Result, error) {
	switch {
	case len(in.FileData) > 0:
		return e.extractPDF(in)
	case strings.TrimSpace(in.Content) != "":
		return e.extractText(in), nil
	case strings.TrimSpace(in.URL) != "":
		return e.extractURL(ctx, in)
	default:
		return nil, errors.ErrMissingContent
	}
}

// extractPDF 逐页抽取 PDF 文本，每页生成一个文档。
func (e *Extractor) extractPDF(in *Input) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(in.FileData), int64(len(in.FileData)))
	if err != nil {
		return nil, errors.ErrExtractionFailed.WithCause(fmt.Errorf("parse pdf: %w", err))
	}

	var docs []*Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败不终止整个文件。
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, &Document{
			Content: text,
			Source:  in.FileName,
			Type:    TypePDF,
			Page:    i,
		})
	}

	if len(docs) == 0 {
		return nil, errors.ErrNoSubstantialContent
	}

	collection := in.Collection
	if collection == "" {
		collection = textutil.SanitizeCollectionName(in.FileName)
	}

	return &Result{
		Collection: collection,
		Documents:  docs,
	}, nil
}

// extractText 将粘贴的文本封装为单个文档。
func (e *Extractor) extractText(in *Input) *Result {
	collection := in.Collection
	if collection == "" {
		collection = fmt.Sprintf("pasted_content_%d", e.now().UnixMilli())
	}

	return &Result{
		Collection: collection,
		Documents: []*Document{{
			Content: in.Content,
			Source:  SourcePasted,
			Type:    TypeText,
		}},
	}
}

// extractURL 抓取网页正文，移除脚本、样式与导航等无关元素。
func (e *Extractor) extractURL(ctx context.Context, in *Input) (*Result, error) {
	target := strings.TrimSpace(in.URL)

	parsed, err := url.ParseRequestURI(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.ErrInvalidURL.WithCause(err)
	}
	req.Header.Set("User-Agent", "docchat/1.0")

	resp, err := e.httpClient.DoRequest(req)
	if err != nil {
		return nil, errors.ErrExtractionFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrExtractionFailed.WithCause(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.ErrExtractionFailed.WithCause(err)
	}

	doc.Find(strippedSelectors).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "Unknown Title"
	}

	content := textutil.CollapseWhitespace(doc.Find("body").Text())
	if content == "" {
		return nil, errors.ErrExtractionFailed
	}

	collection := in.Collection
	if collection == "" {
		collection = e.collectionFromURL(parsed)
	}

	return &Result{
		Collection: collection,
		SourceURL:  target,
		Documents: []*Document{{
			Content: content,
			Source:  target,
			Type:    TypeWebsite,
			Domain:  parsed.Hostname(),
			Title:   title,
			Path:    parsed.Path,
		}},
	}, nil
}

// collectionFromURL 从 URL 派生集合名：域名去掉 www 前缀，
// 路径段用下划线连接，根路径记为 homepage，最后附加毫秒时间戳。
func (e *Extractor) collectionFromURL(u *url.URL) string {
	domain := strings.TrimPrefix(u.Hostname(), "www.")

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	path := strings.Join(parts, "_")
	if path == "" {
		path = "homepage"
	}

	name := fmt.Sprintf("%s_%s_%d", domain, path, e.now().UnixMilli())
	return textutil.SanitizeCollectionName(name)
}
