package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"racefeed/internal/archive"
	"racefeed/internal/config"
	"racefeed/internal/language"
	"racefeed/internal/logging"
	"racefeed/internal/rowstore"
	"racefeed/internal/services"
	"racefeed/internal/services/fetch"
	"racefeed/internal/services/geocode"
	"racefeed/internal/services/llm"
	"racefeed/internal/services/woocommerce"
)

const (
	translationSystemPrompt = "You are a professional translator."
	translationTemperature  = 0.3
)

// Generator is the subset of the generation client used here.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	CompleteInto(ctx context.Context, req llm.Request, target any) (string, error)
	UploadFile(ctx context.Context, name string, data []byte) (string, error)
	GenerateImage(ctx context.Context, req llm.ImageRequest) ([]byte, error)
}

// MediaUploader stores generated images in the catalog media library.
type MediaUploader interface {
	UploadMedia(ctx context.Context, filename, contentType string, data []byte) (woocommerce.Media, error)
}

// Stage configures one generation exchange.
type Stage struct {
	Model           string
	ReasoningEffort string
	Temperature     *float64
	SystemPrompt    string
}

// Options controls enrichment behaviour.
type Options struct {
	First               Stage
	Second              Stage
	TranslationModel    string
	TranslationLanguage string
	ImageModel          string
	ImageSize           string
	ImageQuality        string
	MaxInputChars       int
	SkipAI              bool
	SkipImage           bool
	PlaceholderImageURL string
}

// OptionsFromConfig builds Options and loads the system prompt files.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	g := cfg.Generation
	first, err := loadPrompt(g.SystemPromptFile)
	if err != nil {
		return Options{}, err
	}
	second, err := loadPrompt(g.SecondSystemPromptFile)
	if err != nil {
		return Options{}, err
	}
	return Options{
		First: Stage{
			Model:           g.TextModel,
			ReasoningEffort: g.TextReasoningEffort,
			Temperature:     g.TextTemperature,
			SystemPrompt:    first,
		},
		Second: Stage{
			Model:           g.SecondModel,
			ReasoningEffort: g.SecondReasoningEffort,
			Temperature:     g.SecondTemperature,
			SystemPrompt:    second,
		},
		TranslationModel:    g.TranslationModel,
		TranslationLanguage: cfg.Catalog.TranslationLanguage,
		ImageModel:          g.ImageModel,
		ImageSize:           g.ImageSize,
		ImageQuality:        g.ImageQuality,
		MaxInputChars:       g.MaxInputChars,
		SkipAI:              g.SkipAI,
		SkipImage:           g.SkipImage,
		PlaceholderImageURL: g.PlaceholderImageURL,
	}, nil
}

func loadPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "enrichment", "load prompt", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Dependencies are the collaborators of an Enricher. Any of them may be nil:
// a nil Geocoder yields empty coordinates, a nil Archive skips archiving and a
// nil Media uploader degrades generated images to the placeholder.
type Dependencies struct {
	Generator Generator
	Geocoder  geocode.Resolver
	Fetcher   fetch.Fetcher
	Media     MediaUploader
	Archive   archive.Store
	Logger    *slog.Logger
	Now       func() time.Time
}

// Result carries the derived fields of one head row.
type Result struct {
	Content  Content
	TitlePT  string
	Lat      string
	Lon      string
	ImageURL string
	ImageID  string
	// FileIDs reference documents uploaded for generation.
	FileIDs []string
	// Archived lists archive locators of downloaded documents.
	Archived []string
	Warnings []string
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Updates lists the head row fields persisted before publishing.
func (r Result) Updates() []rowstore.Update {
	return []rowstore.Update{
		{Field: rowstore.FieldSummary, Value: string(r.Content.Summary)},
		{Field: rowstore.FieldOrgInfo, Value: string(r.Content.OrgInfo)},
		{Field: rowstore.FieldBenefits, Value: string(r.Content.Benefits)},
		{Field: rowstore.FieldImageURL, Value: r.ImageURL},
		{Field: rowstore.FieldImageID, Value: r.ImageID},
		{Field: rowstore.FieldSummaryPT, Value: string(r.Content.SummaryPT)},
		{Field: rowstore.FieldOrgInfoPT, Value: string(r.Content.OrgInfoPT)},
		{Field: rowstore.FieldBenefitsPT, Value: string(r.Content.BenefitsPT)},
		{Field: rowstore.FieldRaceNamePT, Value: r.TitlePT},
		{Field: rowstore.FieldLat, Value: r.Lat},
		{Field: rowstore.FieldLon, Value: r.Lon},
	}
}

// Apply copies the derived fields into the in-memory row.
func (r Result) Apply(row *rowstore.Row) {
	for _, u := range r.Updates() {
		row.Set(u.Field, fmt.Sprint(u.Value))
	}
}

// Enricher runs the enrichment sequence for head rows.
type Enricher struct {
	opts   Options
	deps   Dependencies
	logger *slog.Logger
}

// New constructs an Enricher.
func New(opts Options, deps Dependencies) *Enricher {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = llm.MaxUserChars
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Enricher{
		opts:   opts,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "enrichment"),
	}
}

// Enrich derives the generated fields of head. Validation errors leave the
// group untouched; generation failures are external errors. Every other
// failure degrades a single field and is recorded in Result.Warnings.
func (e *Enricher) Enrich(ctx context.Context, head rowstore.Row) (Result, error) {
	ctx = services.WithStage(ctx, "enrichment")
	logger := logging.WithContext(ctx, e.logger)
	var result Result

	title := head.Get(rowstore.FieldRaceName)
	if title == "" {
		return result, services.Wrap(services.ErrValidation, "enrichment", "validate", "race name missing", nil)
	}

	result.Lat, result.Lon = e.Coordinates(ctx, head.Get(rowstore.FieldLocation), &result)

	website := e.fetchSource(ctx, head, head.Get(rowstore.FieldWebsite), "website", &result)
	regulationsURL := head.Get(rowstore.FieldRegulations)
	var regulations fetch.Result
	if regulationsURL != "" {
		regulations = e.fetchSource(ctx, head, regulationsURL, "regulations", &result)
	}
	if website.Empty() && regulations.Empty() {
		return result, services.Wrap(services.ErrValidation, "enrichment", "collect sources", "no source text for generation", nil)
	}

	result.TitlePT = head.Get(rowstore.FieldRaceNamePT)
	if translated := e.translateTitle(ctx, title, &result); translated != "" {
		result.TitlePT = translated
	}

	if e.opts.SkipAI {
		logger.Info("generation skipped", logging.String(logging.FieldEventType, "generation_skipped"))
		result.Content = PlaceholderContent()
	} else {
		content, err := e.generate(ctx, combinedText(regulationsURL, regulations, website), result.FileIDs)
		if err != nil {
			return result, err
		}
		result.Content = content
	}

	result.ImageURL, result.ImageID = e.image(ctx, string(result.Content.ImagePrompt), &result)

	logger.Info("enrichment complete",
		logging.String(logging.FieldEventType, "enrichment_complete"),
		logging.Int("warnings", len(result.Warnings)),
		logging.Int("file_refs", len(result.FileIDs)),
		logging.Bool("has_coordinates", result.Lat != ""),
	)
	return result, nil
}

// Coordinates resolves location into formatted latitude and longitude.
// Failures leave both empty; lookup errors are recorded on result when it is
// non-nil.
func (e *Enricher) Coordinates(ctx context.Context, location string, result *Result) (string, string) {
	logger := logging.WithContext(ctx, e.logger)
	location = strings.TrimSpace(location)
	if location == "" || e.deps.Geocoder == nil {
		return "", ""
	}
	coords, err := e.deps.Geocoder.Resolve(ctx, location)
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		logging.WarnWithContext(logger, "location not found", "geocode_not_found",
			logging.String("location", location),
			logging.String(logging.FieldErrorHint, "check the LOCATION column spelling"),
			logging.String(logging.FieldImpact, "event published without coordinates"),
		)
		return "", ""
	case err != nil:
		logging.WarnWithContext(logger, "geocoding failed", "geocode_failed",
			logging.String("location", location),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the geocoding api key and quota"),
			logging.String(logging.FieldImpact, "event published without coordinates"),
		)
		if result != nil {
			result.warn("geocoding failed: %v", err)
		}
		return "", ""
	}
	return formatCoordinate(coords.Lat), formatCoordinate(coords.Lng)
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fetchSource retrieves one link. Downloaded documents are archived and, when
// generation is enabled, uploaded as file references.
func (e *Enricher) fetchSource(ctx context.Context, head rowstore.Row, rawURL, kind string, result *Result) fetch.Result {
	logger := logging.WithContext(ctx, e.logger).With(logging.String("source", kind))
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || e.deps.Fetcher == nil {
		return fetch.Result{URL: rawURL}
	}
	fetched, err := e.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		logging.WarnWithContext(logger, "source fetch failed", "source_fetch_failed",
			logging.String("url", rawURL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the link is reachable"),
			logging.String(logging.FieldImpact, "source ignored for generation"),
		)
		result.warn("%s fetch failed: %v", kind, err)
		return fetch.Result{URL: rawURL}
	}
	if fetched.Warning != "" {
		result.warn("%s: %s", kind, fetched.Warning)
	}
	if fetched.Document == nil {
		logger.Info("source text extracted",
			logging.String("url", rawURL),
			logging.Int("chars", len([]rune(fetched.Text))),
			logging.String(logging.FieldEventType, "source_text_extracted"),
		)
		return fetched
	}

	doc := fetched.Document
	logger.Info("source document downloaded",
		logging.String("url", rawURL),
		logging.String("document", doc.Name),
		logging.Int("bytes", len(doc.Data)),
		logging.String(logging.FieldEventType, "source_document_downloaded"),
	)
	if e.deps.Archive != nil {
		key := archive.Key(e.deps.Now(), head.Position, doc.Name)
		locator, err := e.deps.Archive.Put(ctx, key, doc.Data, doc.ContentType)
		if err != nil {
			logging.WarnWithContext(logger, "document archive failed", "archive_failed",
				logging.String("key", key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check archive storage settings"),
				logging.String(logging.FieldImpact, "document not kept locally"),
			)
			result.warn("archive %s failed: %v", doc.Name, err)
		} else if locator != "" {
			result.Archived = append(result.Archived, locator)
		}
	}
	if e.opts.SkipAI || e.deps.Generator == nil {
		return fetched
	}
	fileID, err := e.deps.Generator.UploadFile(ctx, doc.Name, doc.Data)
	if err != nil {
		logging.WarnWithContext(logger, "document upload failed", "document_upload_failed",
			logging.String("document", doc.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check generation api access"),
			logging.String(logging.FieldImpact, "generation runs without the document"),
		)
		result.warn("%s upload failed: %v", kind, err)
		return fetched
	}
	result.FileIDs = append(result.FileIDs, fileID)
	return fetched
}

// combinedText assembles the first-stage user text.
func combinedText(regulationsURL string, regulations, website fetch.Result) string {
	var b strings.Builder
	if regulationsURL != "" {
		b.WriteString("\n\nREGULATIONS LINK:\n")
		b.WriteString(regulationsURL)
	}
	if text := strings.TrimSpace(regulations.Text); text != "" {
		b.WriteString("\n\nREGULATIONS INFO:\n")
		b.WriteString(text)
	}
	b.WriteString("\n\nWEBSITE INFO:\n")
	b.WriteString(strings.TrimSpace(website.Text))
	return b.String()
}

func (e *Enricher) translateTitle(ctx context.Context, title string, result *Result) string {
	if e.opts.SkipAI || e.deps.Generator == nil {
		return ""
	}
	logger := logging.WithContext(ctx, e.logger)
	temperature := translationTemperature
	lang := language.DisplayName(e.opts.TranslationLanguage)
	translated, err := e.deps.Generator.Complete(ctx, llm.Request{
		Model:        e.opts.TranslationModel,
		SystemPrompt: translationSystemPrompt,
		UserPrompt: fmt.Sprintf(
			"Translate this race name to %s without changing the meaning or inventing anything. Reply with the translated name only.\n\n%s",
			lang, title),
		Temperature: &temperature,
	})
	if err != nil {
		logging.WarnWithContext(logger, "title translation failed", "title_translation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check generation api access"),
			logging.String(logging.FieldImpact, "localized title falls back to the sheet value"),
		)
		result.warn("title translation failed: %v", err)
		return ""
	}
	translated = strings.Trim(strings.TrimSpace(translated), `"`)
	logger.Info("title translated",
		logging.String("title", title),
		logging.String("translated", translated),
		logging.String(logging.FieldEventType, "title_translated"),
	)
	return translated
}

// generate runs the two generation stages. Without a second-stage model the
// first-stage answer is used directly.
func (e *Enricher) generate(ctx context.Context, text string, fileIDs []string) (Content, error) {
	logger := logging.WithContext(ctx, e.logger)
	if e.deps.Generator == nil {
		return Content{}, services.Wrap(services.ErrConfiguration, "enrichment", "generate", "generation client not configured", nil)
	}
	if strings.TrimSpace(e.opts.Second.Model) == "" {
		var content Content
		if _, err := e.deps.Generator.CompleteInto(ctx, e.request(e.opts.First, text, fileIDs), &content); err != nil {
			return Content{}, services.Wrap(services.ErrExternal, "enrichment", "generate", "first stage", err)
		}
		return content, checkContent(content)
	}

	var draft map[string]any
	logger.Info("generation stage started",
		logging.String("model", e.opts.First.Model),
		logging.Int("stage", 1),
		logging.Int("file_refs", len(fileIDs)),
		logging.String(logging.FieldEventType, "generation_stage_started"),
	)
	if _, err := e.deps.Generator.CompleteInto(ctx, e.request(e.opts.First, text, fileIDs), &draft); err != nil {
		return Content{}, services.Wrap(services.ErrExternal, "enrichment", "generate", "first stage", err)
	}
	second, err := prettyJSON(draft)
	if err != nil {
		return Content{}, services.Wrap(services.ErrExternal, "enrichment", "generate", "encode first stage", err)
	}
	logger.Info("generation stage started",
		logging.String("model", e.opts.Second.Model),
		logging.Int("stage", 2),
		logging.String(logging.FieldEventType, "generation_stage_started"),
	)
	var content Content
	if _, err := e.deps.Generator.CompleteInto(ctx, e.request(e.opts.Second, second, nil), &content); err != nil {
		return Content{}, services.Wrap(services.ErrExternal, "enrichment", "generate", "second stage", err)
	}
	return content, checkContent(content)
}

func checkContent(content Content) error {
	if content.empty() {
		return services.Wrap(services.ErrExternal, "enrichment", "generate", "generated content is empty", nil)
	}
	return nil
}

func (e *Enricher) request(stage Stage, text string, fileIDs []string) llm.Request {
	return llm.Request{
		Model:           stage.Model,
		SystemPrompt:    stage.SystemPrompt,
		UserPrompt:      text,
		ReasoningEffort: stage.ReasoningEffort,
		Temperature:     stage.Temperature,
		FileIDs:         fileIDs,
		MaxUserChars:    e.opts.MaxInputChars,
	}
}

func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// image returns the feature image URL and media ID. Any failure falls back to
// the placeholder, which has no media ID.
func (e *Enricher) image(ctx context.Context, prompt string, result *Result) (string, string) {
	placeholder := e.opts.PlaceholderImageURL
	if e.opts.SkipAI || e.opts.SkipImage {
		return placeholder, ""
	}
	logger := logging.WithContext(ctx, e.logger)
	degrade := func(reason string, err error) (string, string) {
		logging.WarnWithContext(logger, "image acquisition failed", "image_failed",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check image generation and media upload access"),
			logging.String(logging.FieldImpact, "placeholder image used"),
		)
		result.warn("image %s: %v", reason, err)
		return placeholder, ""
	}
	if strings.TrimSpace(prompt) == "" {
		return degrade("prompt", errors.New("image prompt missing"))
	}
	if e.deps.Generator == nil || e.deps.Media == nil {
		return degrade("setup", errors.New("image pipeline not configured"))
	}
	data, err := e.deps.Generator.GenerateImage(ctx, llm.ImageRequest{
		Model:   e.opts.ImageModel,
		Prompt:  prompt,
		Size:    e.opts.ImageSize,
		Quality: e.opts.ImageQuality,
	})
	if err != nil {
		return degrade("generate", err)
	}
	filename := fmt.Sprintf("%d.png", e.deps.Now().Unix())
	media, err := e.deps.Media.UploadMedia(ctx, filename, "image/png", data)
	if err != nil {
		return degrade("upload", err)
	}
	logger.Info("image uploaded",
		logging.Int64("media_id", media.ID),
		logging.String("url", media.SourceURL),
		logging.String(logging.FieldEventType, "image_uploaded"),
	)
	return media.SourceURL, strconv.FormatInt(media.ID, 10)
}
