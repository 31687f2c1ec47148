package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/textsplitter"

	"fileshare/server/common/apperr"
	"fileshare/server/common/infra/object"
	commonlog "fileshare/server/common/log"
	"fileshare/server/rag/domain"
)

const (
	ErrQuestionAnswerRequired = "Question and answer are required"
	ErrQueryRequired          = "Query is required"
	ErrNoAnswer               = "No relevant answer found"
	ErrAddTextFailed          = "Failed to upload text"
	ErrSearchFailed           = "Failed to search"

	DefaultPrefix    = "autorag/"
	defaultChunkSize = 400
	defaultOverlap   = 50
	defaultMinScore  = 0.2
	contextChunks    = 3
	markdownType     = "text/markdown; charset=utf-8"
	metaSeparator    = "\n\n---\n"
)

var slugUnsafe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Generator writes an answer from retrieved context. *ollama.LLM satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	Prefix   string
	MinScore float32
}

type RAGService struct {
	objects   object.Store
	generator Generator
	splitter  textsplitter.RecursiveCharacter
	index     *index
	cfg       Config
	now       func() time.Time
}

// NewRAGService builds the search demo. generator may be nil, in which case
// search answers with the stored answer of the best matching document.
func NewRAGService(objects object.Store, generator Generator, cfg Config) *RAGService {
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = DefaultPrefix
	}
	if !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = defaultMinScore
	}
	return &RAGService{
		objects:   objects,
		generator: generator,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(defaultChunkSize),
			textsplitter.WithChunkOverlap(defaultOverlap),
		),
		index: newIndex(),
		cfg:   cfg,
		now:   time.Now,
	}
}

// Load indexes every document already under the prefix. Unreadable documents
// are logged and skipped.
func (s *RAGService) Load(ctx context.Context) error {
	keys, err := s.objects.List(ctx, s.cfg.Prefix)
	if err != nil {
		return fmt.Errorf("list rag documents: %w", err)
	}
	for _, key := range keys {
		raw, err := s.objects.Get(ctx, key)
		if err != nil {
			commonlog.Warnf("load rag document %s: %v", key, err)
			continue
		}
		doc, ok := parseDocument(key, raw)
		if !ok {
			commonlog.Warnf("skip malformed rag document %s", key)
			continue
		}
		if _, err := s.indexDocument(doc); err != nil {
			commonlog.Warnf("index rag document %s: %v", key, err)
		}
	}
	docs, chunks := s.index.size()
	commonlog.Infof("rag index ready: %d documents, %d chunks", docs, chunks)
	return nil
}

func (s *RAGService) AddText(ctx context.Context, question, answer, metadata string) (domain.AddTextResult, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return domain.AddTextResult{}, apperr.Validation(ErrQuestionAnswerRequired)
	}

	now := s.now().UTC()
	doc := domain.Document{
		Key:        fmt.Sprintf("%s%d-%s.md", s.cfg.Prefix, now.UnixMilli(), slug(question)),
		Question:   question,
		Answer:     answer,
		Metadata:   strings.TrimSpace(metadata),
		UploadedAt: now,
	}

	raw := renderDocument(doc)
	if err := s.objects.Put(ctx, doc.Key, bytes.NewReader(raw), int64(len(raw)), markdownType); err != nil {
		commonlog.Errorf("store rag document %s: %v", doc.Key, err)
		return domain.AddTextResult{}, apperr.Storage(ErrAddTextFailed, err)
	}
	chunks, err := s.indexDocument(doc)
	if err != nil {
		return domain.AddTextResult{}, apperr.Internal(ErrAddTextFailed, err)
	}

	return domain.AddTextResult{
		Message:    fmt.Sprintf("Uploaded question and answer as %d chunks", chunks),
		Title:      question,
		Chunks:     chunks,
		Files:      []string{doc.Key},
		UploadedAt: now,
	}, nil
}

func (s *RAGService) indexDocument(doc domain.Document) (int, error) {
	texts, err := s.splitter.SplitText(doc.Question + "\n\n" + doc.Answer)
	if err != nil {
		return 0, err
	}
	if len(texts) == 0 {
		texts = []string{doc.Question}
	}
	s.index.add(doc, texts)
	return len(texts), nil
}

func (s *RAGService) Search(ctx context.Context, query string) (domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchResult{}, apperr.Validation(ErrQueryRequired)
	}

	hits := s.index.search(embed(query), contextChunks, s.cfg.MinScore)
	if len(hits) == 0 {
		return domain.SearchResult{}, apperr.NotFound(ErrNoAnswer)
	}

	best, ok := s.index.document(hits[0].chunk.docKey)
	if !ok {
		return domain.SearchResult{}, apperr.Internal(ErrSearchFailed, errors.New("indexed chunk without document"))
	}
	answer := best.Answer
	if s.generator != nil {
		generated, err := s.generate(ctx, query, hits)
		if err != nil {
			commonlog.Warnf("rag generation failed, using stored answer: %v", err)
		} else {
			answer = generated
		}
	}
	return domain.SearchResult{Query: query, Answer: answer}, nil
}

func (s *RAGService) generate(ctx context.Context, query string, hits []hit) (string, error) {
	var sb strings.Builder
	for i, h := range hits {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, h.chunk.text)
	}
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "Answer the question using only the numbered context below. Reply in the language of the question.\n\n"+sb.String()),
		llms.TextParts(llms.ChatMessageTypeHuman, query),
	}
	resp, err := s.generator.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", errors.New("empty response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func slug(text string) string {
	out := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(text), "-"), "-")
	runes := []rune(out)
	if len(runes) > 48 {
		out = strings.TrimRight(string(runes[:48]), "-")
	}
	if out == "" {
		return "entry"
	}
	return out
}

func renderDocument(doc domain.Document) []byte {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(strings.ReplaceAll(doc.Question, "\n", " "))
	sb.WriteString("\n\n")
	sb.WriteString(doc.Answer)
	sb.WriteString(metaSeparator)
	sb.WriteString("uploadedAt: ")
	sb.WriteString(doc.UploadedAt.Format(time.RFC3339Nano))
	sb.WriteString("\n")
	if doc.Metadata != "" {
		sb.WriteString("metadata: ")
		sb.WriteString(strings.ReplaceAll(doc.Metadata, "\n", " "))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

func parseDocument(key string, raw []byte) (domain.Document, bool) {
	text := string(raw)
	if !strings.HasPrefix(text, "# ") {
		return domain.Document{}, false
	}
	head, rest, ok := strings.Cut(text[2:], "\n\n")
	if !ok {
		return domain.Document{}, false
	}
	doc := domain.Document{Key: key, Question: strings.TrimSpace(head)}

	body, meta := rest, ""
	if i := strings.LastIndex(rest, metaSeparator); i >= 0 {
		body, meta = rest[:i], rest[i+len(metaSeparator):]
	}
	doc.Answer = strings.TrimSpace(body)
	for _, line := range strings.Split(meta, "\n") {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch name {
		case "uploadedAt":
			if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
				doc.UploadedAt = ts
			}
		case "metadata":
			doc.Metadata = value
		}
	}
	return doc, doc.Question != "" && doc.Answer != ""
}
