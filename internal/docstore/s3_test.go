package docstore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeS3 is an in-memory S3 subset: Head, Get, Put, Delete and ListObjectsV2
// with path-style addressing.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	switch req.Method {
	case http.MethodHead:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		return respond(http.StatusOK, nil, objectHeader(len(body))), nil
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		return respond(http.StatusOK, body, objectHeader(len(body))), nil
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			if body, err = decodeAWSChunked(body); err != nil {
				return respond(http.StatusBadRequest, nil, nil), nil
			}
		}
		f.objects[key] = body
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func respond(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(bytes.NewReader(body))}
}

func objectHeader(size int) http.Header {
	return http.Header{
		"Content-Length": {strconv.Itoa(size)},
		"Content-Type":   {"application/json"},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		"ETag":           {`"etag"`},
	}
}

// decodeAWSChunked strips aws-chunked framing: "<hex>[;ext]\r\n<data>\r\n"
// repeated until a zero-length chunk, optionally followed by trailers.
func decodeAWSChunked(raw []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		size, err := strconv.ParseInt(line, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, err
		}
		if _, err := r.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestS3(t *testing.T, fake *fakeS3, prefix string) *S3 {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "shelfscan-test",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		Prefix:          prefix,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}
	return s
}

func TestS3Store(t *testing.T) {
	storeContract(t, newTestS3(t, newFakeS3(), ""))
}

func TestS3Store_Prefix(t *testing.T) {
	fake := newFakeS3()
	s := newTestS3(t, fake, "/docs/")
	ctx := context.Background()

	if err := s.Save(ctx, "inventory.json", []byte(`[]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	fake.mu.Lock()
	_, ok := fake.objects["docs/inventory.json"]
	fake.objects["other/ignored.json"] = []byte(`{}`)
	fake.objects["docs/nested/deep.json"] = []byte(`{}`)
	fake.mu.Unlock()
	if !ok {
		t.Fatal("object should be stored under the prefix")
	}

	docs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "inventory.json" {
		t.Errorf("List() = %+v, want only inventory.json", docs)
	}
}

func TestS3Store_RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Error("NewS3() without bucket should fail")
	}
}

func TestDecodeAWSChunked(t *testing.T) {
	raw := []byte("5\r\nhello\r\n6;chunk-signature=abc\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	got, err := decodeAWSChunked(raw)
	if err != nil {
		t.Fatalf("decodeAWSChunked() error = %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("decodeAWSChunked() = %q", got)
	}
}
