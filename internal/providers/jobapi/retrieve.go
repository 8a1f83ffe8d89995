package jobapi

import (
	"context"
	"fmt"
	"io"

	"apexgrab/internal/domain"
	"apexgrab/internal/storage"
)

// SavedArtifact describes a download written to the output directory.
type SavedArtifact struct {
	Handle domain.JobHandle
	Key    string
	Path   string
	Size   int64
}

// Downloader retrieves finished artifacts into a FileStore.
type Downloader struct {
	client *Client
	store  *storage.FileStore
	saved  func(SavedArtifact)
}

// NewDownloader wires a retrieval target. saved may be nil.
func NewDownloader(client *Client, store *storage.FileStore, saved func(SavedArtifact)) *Downloader {
	return &Downloader{client: client, store: store, saved: saved}
}

// Retrieve streams /download/{id} into the store without overwriting files
// that already exist there.
func (d *Downloader) Retrieve(ctx context.Context, handle domain.JobHandle) error {
	artifact, err := d.client.Open(ctx, handle)
	if err != nil {
		return err
	}
	defer artifact.Body.Close()

	key, err := d.store.FreeKey(artifact.Filename)
	if err != nil {
		return err
	}
	key, size, err := d.store.WriteStream(ctx, key, artifact.Body)
	if err != nil {
		return fmt.Errorf("jobapi: save artifact: %w", err)
	}
	fullPath, err := d.store.Path(key)
	if err != nil {
		return err
	}
	d.client.logger.Info().
		Str("job_id", string(handle)).
		Str("path", fullPath).
		Int64("bytes", size).
		Msg("jobapi: artifact saved")
	if d.saved != nil {
		d.saved(SavedArtifact{Handle: handle, Key: key, Path: fullPath, Size: size})
	}
	return nil
}

// LinkPrinter hands the download link to the user instead of fetching the
// artifact, the way a browser is given an anchor to follow.
type LinkPrinter struct {
	client *Client
	out    io.Writer
}

// NewLinkPrinter writes one download URL per retrieval to out.
func NewLinkPrinter(client *Client, out io.Writer) *LinkPrinter {
	return &LinkPrinter{client: client, out: out}
}

// Retrieve prints the download URL for handle.
func (p *LinkPrinter) Retrieve(_ context.Context, handle domain.JobHandle) error {
	_, err := fmt.Fprintln(p.out, p.client.DownloadURL(handle))
	return err
}
