package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Formatter formats results for output.
type Formatter interface {
	FormatText(w io.Writer, text string) error
	FormatUpload(w io.Writer, results []UploadResult) error
	FormatDownload(w io.Writer, result *DownloadResult) error
	FormatDelete(w io.Writer, results []DeleteResult) error
	FormatList(w io.Writer, result *ListResult) error
	FormatError(w io.Writer, err error) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

// FormatText writes the notepad content as is.
func (f *HumanFormatter) FormatText(w io.Writer, text string) error {
	_, err := io.WriteString(w, text)
	if err == nil && text != "" && !strings.HasSuffix(text, "\n") {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// FormatUpload formats upload results as human-readable text.
func (f *HumanFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.LocalPath, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Uploaded: %s (%s)\n", r.Name, formatSize(r.Size))
			_, _ = fmt.Fprintf(w, "  Key: %s\n", r.Key)
		}
	}
	return nil
}

// FormatDownload formats download result as human-readable text.
func (f *HumanFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	if !f.Quiet {
		if result.LocalPath == "-" {
			_, _ = fmt.Fprintf(w, "Downloaded: %s (%s)\n", result.Key, formatSize(result.Size))
		} else {
			_, _ = fmt.Fprintf(w, "Downloaded: %s -> %s (%s)\n", result.Key, result.LocalPath, formatSize(result.Size))
		}
		if result.ETag != "" {
			_, _ = fmt.Fprintf(w, "  ETag: %s\n", result.ETag)
		}
	}
	return nil
}

// FormatDelete formats delete results as human-readable text.
func (f *HumanFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "Error: %s - %v\n", r.File, r.Err)
			continue
		}
		if !f.Quiet {
			_, _ = fmt.Fprintf(w, "Deleted: %s\n", r.Key)
		}
	}
	return nil
}

// FormatList formats list results as human-readable text.
func (f *HumanFormatter) FormatList(w io.Writer, result *ListResult) error {
	if len(result.Files) == 0 {
		_, _ = fmt.Fprintln(w, "No files found")
		return nil
	}

	maxNameLen := 4 // "NAME"
	for i := range result.Files {
		if len(result.Files[i].Name) > maxNameLen {
			maxNameLen = len(result.Files[i].Name)
		}
	}
	if maxNameLen > 60 {
		maxNameLen = 60
	}

	_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n", maxNameLen, "NAME", "SIZE", "MODIFIED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", maxNameLen), strings.Repeat("-", 10), strings.Repeat("-", 19))

	for i := range result.Files {
		file := &result.Files[i]
		name := file.Name
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}
		_, _ = fmt.Fprintf(w, "%-*s  %10s  %s\n",
			maxNameLen,
			name,
			formatSize(file.Size),
			file.Date.Local().Format("2006-01-02 15:04:05"),
		)
	}

	_, _ = fmt.Fprintf(w, "\n%d file(s) (%s total)\n", len(result.Files), formatSize(result.TotalSize()))

	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatText formats the notepad content as JSON.
func (f *JSONFormatter) FormatText(w io.Writer, text string) error {
	return writeJSON(w, struct {
		Text string `json:"text"`
	}{Text: text})
}

// FormatUpload formats upload results as JSON.
func (f *JSONFormatter) FormatUpload(w io.Writer, results []UploadResult) error {
	type jsonResult struct {
		LocalPath   string `json:"local_path"`
		Key         string `json:"key,omitempty"`
		Name        string `json:"name"`
		ContentType string `json:"content_type,omitempty"`
		ETag        string `json:"etag,omitempty"`
		Size        int64  `json:"size_bytes,omitempty"`
		Error       string `json:"error,omitempty"`
	}

	output := make([]jsonResult, len(results))
	for i := range results {
		r := &results[i]
		jr := jsonResult{
			LocalPath: r.LocalPath,
			Name:      r.Name,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		} else {
			jr.Key = r.Key
			jr.ContentType = r.ContentType
			jr.ETag = r.ETag
			jr.Size = r.Size
		}
		output[i] = jr
	}

	return writeJSON(w, output)
}

// FormatDownload formats download result as JSON.
func (f *JSONFormatter) FormatDownload(w io.Writer, result *DownloadResult) error {
	return writeJSON(w, result)
}

// FormatDelete formats delete results as JSON.
func (f *JSONFormatter) FormatDelete(w io.Writer, results []DeleteResult) error {
	type jsonResult struct {
		File    string `json:"file"`
		Key     string `json:"key,omitempty"`
		Deleted bool   `json:"deleted"`
		Error   string `json:"error,omitempty"`
	}

	output := struct {
		Results []jsonResult `json:"results"`
	}{
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		jr := jsonResult{
			File:    r.File,
			Key:     r.Key,
			Deleted: r.Deleted,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		output.Results[i] = jr
	}

	return writeJSON(w, output)
}

// FormatList formats list results as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, result *ListResult) error {
	type jsonFile struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		Size int64  `json:"size_bytes"`
		Date string `json:"date"`
		URL  string `json:"url"`
	}

	output := struct {
		Files      []jsonFile `json:"files"`
		TotalBytes int64      `json:"total_bytes"`
	}{
		Files:      make([]jsonFile, len(result.Files)),
		TotalBytes: result.TotalSize(),
	}

	for i, file := range result.Files {
		output.Files[i] = jsonFile{
			Key:  file.Key,
			Name: file.Name,
			Size: file.Size,
			Date: file.Date.UTC().Format(time.RFC3339),
			URL:  file.URL,
		}
	}

	return writeJSON(w, output)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	}
	return writeJSON(w, output)
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
