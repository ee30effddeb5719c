package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pavement-cli/internal/psv"
	"github.com/sells-group/pavement-cli/internal/tabular"
)

// multipartMemory is how much of an upload is buffered in memory before
// the rest spills to disk.
const multipartMemory = 8 << 20

// parseUpload parses a multipart or urlencoded form, bounded by the
// configured upload limit.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	if r.ContentLength > s.cfg.MaxUploadBytes {
		return &http.MaxBytesError{Limit: s.cfg.MaxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return &badRequest{msg: "invalid form: " + err.Error()}
	}
	return nil
}

// upload is a form file copied to disk so the table readers can open it.
type upload struct {
	path string
	name string
}

func (u *upload) remove() {
	if u != nil {
		os.Remove(u.path) //nolint:errcheck
	}
}

// spool copies the named form file to a temporary file. It returns nil when
// the field is absent or empty.
func spool(r *http.Request, field string) (*upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &badRequest{msg: field + ": " + err.Error()}
	}
	defer f.Close() //nolint:errcheck

	if hdr.Filename == "" || hdr.Size == 0 {
		return nil, nil
	}

	tmp, err := os.CreateTemp("", "pavement-upload-*"+filepath.Ext(hdr.Filename))
	if err != nil {
		return nil, eris.Wrap(err, "web: create temp file")
	}
	u := &upload{path: tmp.Name(), name: filepath.Base(hdr.Filename)}

	if _, err := io.Copy(tmp, f); err != nil {
		tmp.Close() //nolint:errcheck
		u.remove()
		return nil, eris.Wrapf(err, "web: spool %s", field)
	}
	if err := tmp.Close(); err != nil {
		u.remove()
		return nil, eris.Wrapf(err, "web: spool %s", field)
	}
	return u, nil
}

// segmentFields are the form fields of a single manually entered segment.
var segmentFields = []string{"link_section", "aadt", "hgv_percent", "survey_year", "lane_count", "site_category", "design_input_level"}

// segmentsFromForm reads either the uploaded segments file or one segment
// typed into the form. It returns the segments and the source label. With
// withKeys set the site category and design input level are required.
func (s *Server) segmentsFromForm(ctx context.Context, r *http.Request, withKeys bool) ([]psv.Segment, string, error) {
	u, err := spool(r, "segments")
	if err != nil {
		return nil, "", err
	}
	if u != nil {
		defer u.remove()
		segs, err := psv.OpenSegments(ctx, u.path, u.name, s.cfg.Input, withKeys)
		return segs, u.name, inputError(err)
	}

	var header, record []string
	for _, f := range segmentFields {
		if v := r.FormValue(f); v != "" {
			header = append(header, f)
			record = append(record, v)
		}
	}
	if len(header) == 0 {
		return nil, "", &badRequest{msg: "upload a segments file or enter a segment"}
	}
	t := tabular.NewTable("form", header, [][]string{record})
	segs, err := psv.LoadSegments(t, withKeys)
	return segs, "form", inputError(err)
}

// referenceFromForm reads the optional reference upload. A nil table means
// none was sent.
func (s *Server) referenceFromForm(ctx context.Context, r *http.Request) (*psv.ReferenceTable, string, error) {
	u, err := spool(r, "reference")
	if err != nil || u == nil {
		return nil, "", err
	}
	defer u.remove()

	ref, err := psv.OpenReference(ctx, u.path, u.name, s.cfg.Input)
	if err != nil {
		return nil, "", inputError(err)
	}
	return ref, u.name, nil
}

// inputError classifies a failure to load uploaded data. Typed read and
// validation errors keep their own status; anything else, such as an
// unknown file type or overlapping reference bands, is a bad request.
func inputError(err error) error {
	if err == nil {
		return nil
	}
	var (
		read    *tabular.ReadError
		missing *tabular.MissingColumnsError
		invalid *psv.ValidationError
	)
	if errors.As(err, &read) || errors.As(err, &missing) || errors.As(err, &invalid) {
		return err
	}
	return &badRequest{msg: err.Error()}
}

// openUpload reads a spooled table upload.
func (s *Server) openUpload(ctx context.Context, u *upload) (*tabular.Table, error) {
	t, err := tabular.OpenNamed(ctx, u.path, u.name, s.cfg.Input)
	return t, inputError(err)
}
