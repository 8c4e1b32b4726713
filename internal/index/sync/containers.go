package sync

import (
	"context"
	"fmt"
)

// DownloadResourceContainer downloads the container of an indexed resource.
func (c *Client) DownloadResourceContainer(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error) {
	if c.opts.Containers == nil {
		return "", ErrNotImplemented
	}
	res, err := c.library.GetResource(ctx, languageSlug, projectSlug, resourceSlug)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("resource %s/%s/%s is not indexed", languageSlug, projectSlug, resourceSlug)
	}
	return c.opts.Containers.Download(ctx, languageSlug, projectSlug, resourceSlug)
}

// OpenResourceContainer opens a downloaded container for reading.
func (c *Client) OpenResourceContainer(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error) {
	if c.opts.Containers == nil {
		return "", ErrNotImplemented
	}
	return c.opts.Containers.Open(ctx, languageSlug, projectSlug, resourceSlug)
}

// CloseResourceContainer closes an opened container.
func (c *Client) CloseResourceContainer(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (string, error) {
	if c.opts.Containers == nil {
		return "", ErrNotImplemented
	}
	return c.opts.Containers.Close(ctx, languageSlug, projectSlug, resourceSlug)
}

// ListResourceContainers lists the containers on disk.
func (c *Client) ListResourceContainers(ctx context.Context) ([]ContainerInfo, error) {
	if c.opts.Containers == nil {
		return nil, ErrNotImplemented
	}
	return c.opts.Containers.List(ctx)
}

// ProjectUpdates returns projects of a source language with newer content
// than what is downloaded.
func (c *Client) ProjectUpdates(ctx context.Context, languageSlug string) ([]string, error) {
	if c.opts.Updates == nil {
		return nil, ErrNotImplemented
	}
	return c.opts.Updates.ProjectUpdates(ctx, languageSlug)
}

// SourceLanguageUpdates returns source languages with newer content than
// what is downloaded.
func (c *Client) SourceLanguageUpdates(ctx context.Context) ([]string, error) {
	if c.opts.Updates == nil {
		return nil, ErrNotImplemented
	}
	return c.opts.Updates.SourceLanguageUpdates(ctx)
}
