package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	fsrepo "Whisper/internal/cli/repo/fs"
	"Whisper/internal/storage"
)

const authCookie = "auth_token"

func newRequest(ctx context.Context, method, url string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Cookie", authCookie+"="+token)
	}
	return req, nil
}

// do выполняет запрос и целиком вычитывает тело. resp.Body к моменту возврата уже закрыт.
func do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}

// PostJSON sends a JSON POST request. If token is non-empty, it is passed as auth cookie.
func PostJSON(ctx context.Context, url string, payload any, token string) (*http.Response, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := newRequest(ctx, http.MethodPost, url, bytes.NewReader(b), token)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}

// Get выполняет GET с auth cookie.
func Get(ctx context.Context, url, token string) (*http.Response, []byte, error) {
	req, err := newRequest(ctx, http.MethodGet, url, nil, token)
	if err != nil {
		return nil, nil, err
	}
	return do(req)
}

// PostAudio отправляет multipart-форму с текстом и аудиофайлом.
// Content-Type части берётся по расширению имени файла.
func PostAudio(ctx context.Context, url, text, filename string, audio []byte) (*http.Response, []byte, error) {
	if len(audio) == 0 {
		return nil, nil, errors.New("empty audio")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if text != "" {
		if err := mw.WriteField("text", text); err != nil {
			return nil, nil, err
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", storage.ContentTypeForPath(filename))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}
	req, err := newRequest(ctx, http.MethodPost, url, &buf, "")
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return do(req)
}

// AttachmentFilename достаёт имя файла из Content-Disposition ответа.
func AttachmentFilename(resp *http.Response) (string, bool) {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", false
	}
	return name, true
}

// ErrorMessage возвращает поле error из JSON-ответа сервера, иначе тело как есть.
func ErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// PersistAuthFromResponse извлекает auth cookie из ответа и сохраняет его через файловое хранилище.
func PersistAuthFromResponse(resp *http.Response) error {
	store := fsrepo.AuthFSStore{}
	for _, c := range resp.Cookies() {
		if c.Name == authCookie && c.Value != "" {
			return store.Save(c.Value)
		}
	}
	return fmt.Errorf("no auth cookie in response")
}
