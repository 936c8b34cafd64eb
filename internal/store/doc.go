// Package store keeps the provider directory and the example domain index as
// JSON documents on an afero filesystem.
//
// Providers preserves key order so that saving an unchanged directory yields
// byte-identical output. Writes go to a temp file beside the target and are
// renamed into place; reads never fail, a missing or malformed document simply
// loads as empty.
package store
