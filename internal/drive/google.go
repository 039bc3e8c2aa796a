package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/driveftp/driveftp/internal/logging"
	"github.com/driveftp/driveftp/internal/metrics"
)

// Every mutation requests the same minimal projection so constructed
// entries stay consistent and responses stay small.
const minimalFields googleapi.Field = "id, name, mimeType, size, trashed, modifiedTime"
const pageFields googleapi.Field = "nextPageToken, files(id, name, mimeType, size, trashed, modifiedTime)"

// GoogleClient implements Client against the Drive v3 API.
type GoogleClient struct {
	svc *gdrive.Service
}

// NewGoogleClient creates a Drive client with the given API options.
func NewGoogleClient(ctx context.Context, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleClient{svc: svc}, nil
}

// Query returns one page of objects matching the filter expression.
func (c *GoogleClient) Query(ctx context.Context, query, pageToken string) (*Page, error) {
	start := time.Now()

	call := c.svc.Files.List().
		Q(query).
		PageSize(MaxPageSize).
		Fields(pageFields).
		Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}

	list, err := call.Do()
	if err != nil {
		metrics.RecordDriveCall("files_list", time.Since(start), false)
		return nil, fmt.Errorf("list files: %w", err)
	}
	metrics.RecordDriveCall("files_list", time.Since(start), true)

	page := &Page{
		Items:         make([]*Object, 0, len(list.Files)),
		NextPageToken: list.NextPageToken,
	}
	for _, f := range list.Files {
		page.Items = append(page.Items, fromFile(f))
	}

	logging.Debug("drive query",
		zap.String("query", query),
		zap.Int("items", len(page.Items)),
		zap.Bool("more", list.NextPageToken != ""))

	return page, nil
}

// Get opens a ranged content download. The Drive client checks the
// response status before handing the body back, so a non-success status
// fails here with no bytes delivered.
func (c *GoogleClient) Get(ctx context.Context, id string, offset int64) (io.ReadCloser, int64, error) {
	start := time.Now()

	call := c.svc.Files.Get(id).Context(ctx)
	if offset > 0 {
		call.Header().Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := call.Download()
	if err != nil {
		metrics.RecordDriveCall("files_get_media", time.Since(start), false)
		return nil, 0, fmt.Errorf("get content %s: %w", id, err)
	}
	metrics.RecordDriveCall("files_get_media", time.Since(start), true)

	logging.Debug("drive get content",
		zap.String("id", id),
		zap.Int64("offset", offset),
		zap.Int64("length", resp.ContentLength))

	return resp.Body, resp.ContentLength, nil
}

// Create makes a metadata-only object.
func (c *GoogleClient) Create(ctx context.Context, meta Metadata) (*Object, error) {
	start := time.Now()

	created, err := c.svc.Files.Create(&gdrive.File{
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Parents:  meta.Parents,
	}).Fields(minimalFields).Context(ctx).Do()
	if err != nil {
		metrics.RecordDriveCall("files_create", time.Since(start), false)
		return nil, fmt.Errorf("create %s: %w", meta.Name, err)
	}
	metrics.RecordDriveCall("files_create", time.Since(start), true)

	logging.Debug("drive create",
		zap.String("id", created.Id),
		zap.String("name", created.Name),
		zap.String("mime_type", created.MimeType))

	return fromFile(created), nil
}

// Update applies metadata and/or content changes to an object.
func (c *GoogleClient) Update(ctx context.Context, id string, upd Update) (*Object, error) {
	start := time.Now()

	f := &gdrive.File{}
	if upd.Name != "" {
		f.Name = upd.Name
	}
	if upd.Trashed != nil {
		f.Trashed = *upd.Trashed
		f.ForceSendFields = append(f.ForceSendFields, "Trashed")
	}
	if upd.ModifiedTime != nil {
		f.ModifiedTime = upd.ModifiedTime.UTC().Format(time.RFC3339Nano)
	}
	if upd.AccessedTime != nil {
		f.ViewedByMeTime = upd.AccessedTime.UTC().Format(time.RFC3339Nano)
	}
	if upd.CreatedTime != nil {
		f.CreatedTime = upd.CreatedTime.UTC().Format(time.RFC3339Nano)
	}

	call := c.svc.Files.Update(id, f).Fields(minimalFields).Context(ctx)
	if upd.AddParent != "" {
		call.AddParents(upd.AddParent)
	}
	if upd.RemoveParent != "" {
		call.RemoveParents(upd.RemoveParent)
	}
	if upd.Content != nil {
		call.Media(upd.Content, googleapi.ContentType("application/octet-stream"))
	}

	updated, err := call.Do()
	if err != nil {
		metrics.RecordDriveCall("files_update", time.Since(start), false)
		return nil, fmt.Errorf("update %s: %w", id, err)
	}
	metrics.RecordDriveCall("files_update", time.Since(start), true)

	logging.Debug("drive update",
		zap.String("id", id),
		zap.Bool("content", upd.Content != nil),
		zap.Int64("content_size", upd.ContentSize))

	return fromFile(updated), nil
}

// fromFile converts a Drive API file into the client's projection.
// Google-native types (folders, docs) carry no byte size; their Size
// stays nil.
func fromFile(f *gdrive.File) *Object {
	o := &Object{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Trashed:  f.Trashed,
	}
	if !strings.HasPrefix(f.MimeType, "application/vnd.google-apps.") {
		size := f.Size
		o.Size = &size
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			o.ModifiedTime = t
		}
	}
	return o
}
