// Package wkp implements a markup-preserving translation pipeline for
// MediaWiki articles, plus the revision guard that keeps publishing safe.
//
// The pipeline tokenizes wikitext into typed segments, hides protected
// markup behind opaque placeholder tokens, ships the remaining prose to a
// translation provider in bounded batches, and reassembles the original
// markup around the translated text. Placeholder integrity is verified on
// the way back: a provider that drops or mangles a token gets the whole
// document rejected rather than silently corrupted.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/mgaitan/wkp"
//	    "github.com/mgaitan/wkp/cache"
//	    "github.com/mgaitan/wkp/provider"
//	)
//
//	func main() {
//	    p := provider.NewLibreTranslate(provider.LibreTranslateConfig{})
//
//	    pipe := wkp.NewPipeline("en", "es", p,
//	        wkp.WithCache(cache.NewInMemoryCache(0)),
//	    )
//
//	    res, err := pipe.Translate(context.Background(), article)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Wikitext)
//	}
//
// Fetching articles and publishing edits (with optimistic revision
// checking) live in the mediawiki subpackage; local drafts with their
// revision sidecars live in storage.
package wkp
