// Package reconcile runs one provider sync: load the stored directory, read the
// provider listing, prune what is no longer listed, fetch every detail page
// behind the shared gate, merge the results in listing order and save.
//
// Only the listing is fatal. A detail page that cannot be fetched leaves the
// stored record for that provider as it was, and a provider that was never
// stored before simply stays absent until a later run succeeds.
package reconcile
