// wkp — Wikipedia helper CLI: download, translate, preview, and publish
// articles with markup-preserving machine translation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mgaitan/wkp"
	"github.com/mgaitan/wkp/cache"
	"github.com/mgaitan/wkp/mediawiki"
	"github.com/mgaitan/wkp/provider"
	"github.com/mgaitan/wkp/storage"
	"github.com/spf13/cobra"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var articlesDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wkp",
		Short: "Wikipedia helper: download, translate, preview, publish",
		Long: `wkp — Wikipedia helper CLI.

Downloads wikitext articles, machine-translates them while keeping the
markup intact, previews the result, and publishes edits back with an
edit-conflict guard.

Environment:
  WKP_USERNAME / WKP_PASSWORD   wiki credentials (publish)
  WKP_TRANSLATE_URL             LibreTranslate endpoint override
  WKP_TRANSLATE_KEY             LibreTranslate API key
  WKP_REDIS_URL                 Redis translation memory (optional)
  WKP_USER_AGENT                User-Agent override for API calls
  OPENAI_API_KEY                OpenAI key (--engine openai)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&articlesDir, "articles-dir", "articles", "Local draft directory")

	root.AddCommand(
		newDownloadCmd(),
		newTranslateCmd(),
		newPreviewCmd(),
		newPublishCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func newWikiClient(lang string) *mediawiki.Client {
	return mediawiki.NewClient(lang,
		mediawiki.WithUserAgent(os.Getenv("WKP_USER_AGENT")))
}

// ---------------------------------------------------------------------------
// download
// ---------------------------------------------------------------------------

func newDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <url>",
		Short: "Download wikitext from a Wikipedia URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, title, err := mediawiki.ParseArticleURL(args[0])
			if err != nil {
				return err
			}
			page, err := newWikiClient(lang).FetchPage(cmd.Context(), title)
			if err != nil {
				return err
			}

			store := storage.NewStore(articlesDir)
			path, err := store.Save(lang, page.Title, page.Wikitext, &storage.Meta{
				Title:      page.Title,
				Lang:       lang,
				RevisionID: page.RevisionID,
				FetchedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			logSuccess("Saved %s (revision %s)", path, page.RevisionID)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		targetLang  string
		sourceLang  string
		engine      string
		model       string
		tmFile      string
		unitChars   int
		concurrency int
		rpm         int
	)

	cmd := &cobra.Command{
		Use:   "translate <url>",
		Short: "Create an initial translation from a source Wikipedia URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcLang, title, err := mediawiki.ParseArticleURL(args[0])
			if err != nil {
				return err
			}
			if sourceLang != "" {
				srcLang = sourceLang
			}

			page, err := newWikiClient(srcLang).FetchPage(cmd.Context(), title)
			if err != nil {
				return err
			}
			logInfo("Fetched %q (%d bytes, revision %s)", page.Title, len(page.Wikitext), page.RevisionID)

			translated := page.Wikitext
			if engine != "none" {
				translated, err = runPipeline(cmd.Context(), page.Wikitext, srcLang, targetLang,
					engine, model, tmFile, unitChars, concurrency, rpm)
				if err != nil {
					return err
				}
			}

			store := storage.NewStore(articlesDir)
			path, err := store.Save(targetLang, page.Title, translated, &storage.Meta{
				Title:      page.Title,
				Lang:       targetLang,
				SourceLang: srcLang,
				RevisionID: page.RevisionID,
				FetchedAt:  time.Now().UTC(),
			})
			if err != nil {
				return err
			}
			logSuccess("Translated draft saved: %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetLang, "lang", "es", "Target language")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "Override source language")
	cmd.Flags().StringVar(&engine, "engine", "libretranslate", "Translation engine: libretranslate, openai, none")
	cmd.Flags().StringVar(&model, "model", "gpt-4o-mini", "Model for --engine openai")
	cmd.Flags().StringVar(&tmFile, "tm", "", "Translation memory JSON file (loaded before, saved after)")
	cmd.Flags().IntVar(&unitChars, "unit-chars", wkp.DefaultUnitChars, "Character budget per translation request")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Concurrent translation requests")
	cmd.Flags().IntVar(&rpm, "rpm", 20, "Requests per minute sent to the translation service")
	return cmd
}

func runPipeline(ctx context.Context, text, srcLang, targetLang, engine, model, tmFile string, unitChars, concurrency, rpm int) (string, error) {
	prov, err := buildProvider(engine, model)
	if err != nil {
		return "", err
	}
	prov = wkp.NewRateLimitedProvider(prov, wkp.RateLimitConfig{RequestsPerMinute: rpm})
	prov = wkp.NewRetryableProvider(prov, wkp.DefaultRetryConfig())

	tcache, flushTM, err := buildCache(tmFile)
	if err != nil {
		return "", err
	}

	pipe := wkp.NewPipeline(srcLang, targetLang, prov,
		wkp.WithCache(tcache),
		wkp.WithUnitChars(unitChars),
		wkp.WithConcurrency(concurrency),
	)

	start := time.Now()
	res, err := pipe.Translate(ctx, text)
	if err != nil {
		if res != nil && res.Fallback {
			logError("Reassembly failed, keeping the original text: %v", err)
		}
		return "", err
	}

	for _, w := range res.Warnings {
		logWarning("Markup: %s", w)
	}
	for _, fu := range res.FailedUnits {
		logWarning("Unit kept untranslated: %v", fu)
	}
	logInfo("Units: %d, translated: %d, from cache: %d, failed: %d (%v)",
		res.Units, res.TranslatedCount, res.CachedCount, len(res.FailedUnits),
		time.Since(start).Round(time.Millisecond))

	if flushTM != nil {
		if err := flushTM(); err != nil {
			logWarning("Saving translation memory: %v", err)
		}
	}
	return res.Wikitext, nil
}

func buildProvider(engine, model string) (wkp.TranslationProvider, error) {
	switch engine {
	case "libretranslate":
		return provider.NewLibreTranslate(provider.LibreTranslateConfig{
			Endpoint: os.Getenv("WKP_TRANSLATE_URL"),
			APIKey:   os.Getenv("WKP_TRANSLATE_KEY"),
		}), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, errors.New("OPENAI_API_KEY is required for --engine openai")
		}
		return provider.NewOpenAIProvider(provider.OpenAIConfig{APIKey: key, Model: model}), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
}

// buildCache picks the translation memory backend: Redis when
// WKP_REDIS_URL is set, otherwise an in-memory cache optionally seeded
// from (and flushed back to) a JSON file.
func buildCache(tmFile string) (wkp.TranslationCache, func() error, error) {
	if redisURL := os.Getenv("WKP_REDIS_URL"); redisURL != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{URL: redisURL})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		return rc, nil, nil
	}

	mem := cache.NewInMemoryCache(0)
	if tmFile == "" {
		return mem, nil, nil
	}

	if _, err := os.Stat(tmFile); err == nil {
		res, err := cache.NewImporter(mem).ImportFromFile(tmFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading translation memory: %w", err)
		}
		logInfo("Translation memory: %d entries loaded", res.Imported)
	}
	flush := func() error {
		return cache.NewExporter(mem).ExportToFile(tmFile, map[string]string{"tool": wkp.Name})
	}
	return mem, flush, nil
}

// ---------------------------------------------------------------------------
// preview
// ---------------------------------------------------------------------------

func newPreviewCmd() *cobra.Command {
	var (
		lang  string
		out   string
		check bool
	)

	cmd := &cobra.Command{
		Use:   "preview <draft.wiki>",
		Short: "Render a draft to HTML, or check its markup structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, meta, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			title := storage.TitleFromPath(args[0])
			if meta != nil && meta.Title != "" {
				title = meta.Title
			}
			if meta != nil && meta.Lang != "" {
				lang = meta.Lang
			}

			if check {
				return runStructureCheck(cmd.Context(), text, meta)
			}

			client := newWikiClient(lang)
			fragment, err := client.RenderPreview(cmd.Context(), text, title)
			if err != nil {
				return err
			}
			html, err := mediawiki.BuildPreviewDocument(fragment, client.BaseURL(),
				lang, wkp.GetDirection(lang), title)
			if err != nil {
				return err
			}

			if out == "" {
				out = strings.TrimSuffix(args[0], ".wiki") + ".html"
			}
			if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
				return fmt.Errorf("writing preview: %w", err)
			}
			logSuccess("Preview saved: %s", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "es", "Wiki language used for rendering (sidecar wins)")
	cmd.Flags().StringVar(&out, "out", "", "Output HTML file")
	cmd.Flags().BoolVar(&check, "check", false, "Compare markup structure against the source article instead of rendering")
	return cmd
}

// runStructureCheck diffs the draft's markup skeleton against the source
// article it was translated from. Lost or invented templates, refs, and
// tables almost always mean the translation damaged markup.
func runStructureCheck(ctx context.Context, draft string, meta *storage.Meta) error {
	if meta == nil || meta.SourceLang == "" || meta.Title == "" {
		return errors.New("structure check needs a sidecar with title and source_lang (created by 'wkp translate')")
	}

	page, err := newWikiClient(meta.SourceLang).FetchPage(ctx, meta.Title)
	if err != nil {
		return err
	}

	diff := wkp.DiffStructure(page.Wikitext, draft)
	logInfo("Structure: %d elements unchanged", diff.Unchanged)
	if !diff.HasChanges() {
		logSuccess("Markup structure matches the source article")
		return nil
	}
	for _, s := range diff.Removed {
		logWarning("missing %s: %s", s.Kind, abbreviate(s.Raw, 60))
	}
	for _, s := range diff.Added {
		logWarning("extra %s: %s", s.Kind, abbreviate(s.Raw, 60))
	}
	return fmt.Errorf("structure check found %d missing and %d extra element(s)",
		len(diff.Removed), len(diff.Added))
}

func abbreviate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ---------------------------------------------------------------------------
// publish
// ---------------------------------------------------------------------------

func newPublishCmd() *cobra.Command {
	var (
		lang    string
		title   string
		summary string
		minor   bool
		baseRev string
		asNew   bool
	)

	cmd := &cobra.Command{
		Use:   "publish <draft.wiki>",
		Short: "Publish a local draft to Wikipedia",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := os.Getenv("WKP_USERNAME")
			password := os.Getenv("WKP_PASSWORD")
			if username == "" || password == "" {
				return errors.New("missing WKP_USERNAME/WKP_PASSWORD in environment")
			}

			text, meta, err := storage.Load(args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = storage.TitleFromPath(args[0])
				if meta != nil && meta.Title != "" {
					title = meta.Title
				}
			}

			// Resolve the base revision for the conflict guard. The sidecar
			// only applies when the draft targets the wiki it was fetched
			// from; a translation is a new page on another wiki.
			if baseRev == "" && meta != nil && meta.Lang == lang && meta.SourceLang == "" {
				baseRev = meta.RevisionID
			}
			if baseRev == "" && !asNew {
				return errors.New("no base revision known for this draft; pass --base-revision, or --new to create the page")
			}
			if asNew {
				baseRev = ""
			}

			client := newWikiClient(lang)
			if err := client.Login(cmd.Context(), username, password); err != nil {
				return err
			}

			result, err := client.CheckAndPublish(cmd.Context(), mediawiki.Edit{
				Title:          title,
				BaseRevisionID: baseRev,
				Text:           text,
				Summary:        summary,
				Minor:          minor,
			})
			if err != nil {
				var conflict *mediawiki.EditConflictError
				var unknown *mediawiki.PublishUnknownError
				switch {
				case errors.As(err, &conflict):
					logError("Edit conflict: %v", conflict)
					logInfo("Re-download the article, merge your changes, and publish again.")
				case errors.As(err, &unknown):
					logError("%v", unknown)
					logInfo("Check the article history before retrying; the edit may have gone through.")
				}
				return err
			}

			if result.NoChange {
				logInfo("No change: the article already matches the draft")
				return nil
			}
			logSuccess("Published %q (%s) as revision %s", title, lang, result.NewRevisionID)

			// Keep the sidecar pointing at the revision we just created.
			if meta != nil && meta.Lang == lang {
				meta.RevisionID = result.NewRevisionID
				if err := storage.WriteMeta(args[0], meta); err != nil {
					logWarning("Updating sidecar: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "es", "Target wiki language")
	cmd.Flags().StringVar(&title, "title", "", "Override page title")
	cmd.Flags().StringVar(&summary, "summary", "Update via wkp", "Edit summary")
	cmd.Flags().BoolVar(&minor, "minor", false, "Mark the edit as minor")
	cmd.Flags().StringVar(&baseRev, "base-revision", "", "Override the base revision for the conflict check")
	cmd.Flags().BoolVar(&asNew, "new", false, "Create the page (fails if it already exists)")
	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", wkp.Name, wkp.Version)
			if wkp.GitCommit != "unknown" {
				fmt.Printf("  commit: %s\n", wkp.GitCommit)
			}
			if wkp.BuildDate != "unknown" {
				fmt.Printf("  built:  %s\n", wkp.BuildDate)
			}
		},
	}
}
