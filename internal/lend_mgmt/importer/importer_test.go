package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"lendit-admin/internal/platform/apiclient"
	"lendit-admin/internal/platform/apierr"
)

type fakeUploader struct {
	calls atomic.Int32
	fn    func(ctx context.Context, out any) error
}

func (f *fakeUploader) Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	f.calls.Add(1)
	if field != "file" {
		return errors.New("bad field " + field)
	}
	return f.fn(ctx, out)
}

func decodeInto(out any, body string) error {
	return json.Unmarshal([]byte(body), out)
}

func xlsx(size int64) File {
	return File{Name: "datos.XLSX", Size: size, Content: strings.NewReader("PK")}
}

func TestValidate_NoNetwork(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, any) error { return nil }}
	p := New(up, time.Second, 0)

	cases := []struct {
		f    File
		want error
	}{
		{File{Name: "datos.csv", Size: 10}, ErrExtension},
		{File{Name: "datos.xls", Size: 10}, ErrExtension},
		{File{Name: "datos.xlsx", Size: 0}, ErrEmpty},
		{File{Name: "datos.xlsx", Size: MaxBytes + 1}, ErrTooLarge},
	}
	for _, tc := range cases {
		_, err := p.Import(context.Background(), Requesters, tc.f)
		if !errors.Is(err, tc.want) {
			t.Errorf("%+v: err = %v, want %v", tc.f, err, tc.want)
		}
		if st := apierr.ToHTTPStatus(err); st != http.StatusBadRequest {
			t.Errorf("status = %d", st)
		}
	}
	if n := up.calls.Load(); n != 0 {
		t.Fatalf("uploader called %d times", n)
	}
	if err := p.Validate(File{Name: "ok.xlsx", Size: MaxBytes}); err != nil {
		t.Fatalf("max size rejected: %v", err)
	}
}

func TestImport_Success(t *testing.T) {
	up := &fakeUploader{fn: func(_ context.Context, out any) error {
		return decodeInto(out, `{"message":"Se importaron 12 solicitantes exitosamente"}`)
	}}
	res, err := New(up, time.Second, 0).Import(context.Background(), Requesters, xlsx(100))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != KindSuccess || res.Successes != 12 || res.Total != 12 || res.Partial || len(res.Errors) != 0 {
		t.Fatalf("res = %+v", res)
	}
}

func TestImport_PartialAndFailedBodies(t *testing.T) {
	cases := []struct {
		body string
		kind Kind
		ok   int
		tot  int
	}{
		{`{"message":"Importación parcial","total":5,"exitosos":3,"errores":["Fila 2: x","Fila 4: y"],"parcial":true}`, KindPartial, 3, 5},
		{`{"message":"Se encontraron 2 errores durante la importación","errores":["Fila 2: x","Fila 3: y"]}`, KindFailed, 0, 2},
		{`{"message":"ok","exitosos":4,"errores":["Fila 9: z"]}`, KindPartial, 4, 5},
	}
	for _, tc := range cases {
		up := &fakeUploader{fn: func(_ context.Context, out any) error { return decodeInto(out, tc.body) }}
		res, err := New(up, time.Second, 0).Import(context.Background(), Products, xlsx(10))
		if err != nil {
			t.Fatal(err)
		}
		if res.Kind != tc.kind || res.Successes != tc.ok || res.Total != tc.tot {
			t.Errorf("body %s: res = %+v", tc.body, res)
		}
	}
}

func TestImport_CancelVsTimeout(t *testing.T) {
	block := func(ctx context.Context, _ any) error {
		<-ctx.Done()
		return ctx.Err()
	}

	t.Run("caller cancels first", func(t *testing.T) {
		p := New(&fakeUploader{fn: block}, time.Minute, 0)
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := p.Import(ctx, Requesters, xlsx(10))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
		if errors.Is(err, ErrTimeout) {
			t.Fatal("cancellation reported as timeout")
		}
	})

	t.Run("timer fires first", func(t *testing.T) {
		p := New(&fakeUploader{fn: block}, 20*time.Millisecond, 0)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, err := p.Import(ctx, Requesters, xlsx(10))
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("want ErrTimeout, got %v", err)
		}
		if errors.Is(err, context.Canceled) {
			t.Fatal("timeout reported as cancellation")
		}
		if st := apierr.ToHTTPStatus(err); st != http.StatusGatewayTimeout {
			t.Fatalf("status = %d", st)
		}
	})
}

func TestImport_ErrorBodyKeepsStructuredPayload(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, any) error {
		return &apiclient.HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Se encontraron 1 errores",
			Body:       []byte(`{"message":"Se encontraron 1 errores","exitosos":2,"errores":["Fila 3: Rol inválido: x"]}`),
		}
	}}
	_, err := New(up, time.Second, 0).Import(context.Background(), Requesters, xlsx(10))
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("want *ImportError, got %T %v", err, err)
	}
	if ie.Result.Successes != 2 || len(ie.Result.Errors) != 1 || ie.Result.Kind != KindPartial {
		t.Fatalf("result = %+v", ie.Result)
	}
	b := apierr.From(err)
	if _, ok := b.Error.Details.(Result); !ok {
		t.Fatalf("details = %#v", b.Error.Details)
	}
	if st := apierr.ToHTTPStatus(err); st != http.StatusBadRequest {
		t.Fatalf("status = %d", st)
	}
}

func TestImport_ErrorBodyWithoutErrores(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, any) error {
		return &apiclient.HTTPError{StatusCode: 500, Message: apiclient.GenericMessage, Body: []byte(`oops`)}
	}}
	_, err := New(up, time.Second, 0).Import(context.Background(), Products, xlsx(10))
	var ae *apierr.APIError
	if !errors.As(err, &ae) || ae.Message != "Error al importar productos" {
		t.Fatalf("err = %v", err)
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		t.Fatal("generic failure must not carry a result")
	}
}

func TestImport_SessionExpiredPassesThrough(t *testing.T) {
	up := &fakeUploader{fn: func(context.Context, any) error {
		return errors.Join(apiclient.ErrSessionExpired)
	}}
	_, err := New(up, time.Second, 0).Import(context.Background(), Products, xlsx(10))
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
}

func TestRequesterTemplate(t *testing.T) {
	b, err := RequesterTemplate()
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("solicitantes")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 2 || rows[0][0] != "identificacion" || rows[0][6] != "rol" || rows[0][10] != "programa" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestImport_RealClientUsesImportDeadline(t *testing.T) {
	var delay atomic.Int64
	delay.Store(int64(150 * time.Millisecond))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Duration(delay.Load())):
			_, _ = io.WriteString(w, `{"message":"Se importaron 3 solicitantes exitosamente"}`)
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	// バックエンドの 1 回あたりの上限はアップロードに掛からない
	api, err := apiclient.New(srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("slower than client timeout succeeds", func(t *testing.T) {
		res, err := New(api, time.Second, 0).Import(context.Background(), Requesters, xlsx(10))
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.Kind != KindSuccess || res.Successes != 3 {
			t.Fatalf("res = %+v", res)
		}
	})

	t.Run("slower than import timeout", func(t *testing.T) {
		delay.Store(int64(400 * time.Millisecond))
		start := time.Now()
		_, err := New(api, 200*time.Millisecond, 0).Import(context.Background(), Requesters, xlsx(10))
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("want ErrTimeout, got %v", err)
		}
		if errors.Is(err, apiclient.ErrConnection) {
			t.Fatal("timeout reported as connection error")
		}
		if st := apierr.ToHTTPStatus(err); st != http.StatusGatewayTimeout {
			t.Fatalf("status = %d", st)
		}
		if d := time.Since(start); d < 150*time.Millisecond {
			t.Fatalf("cut off after %v", d)
		}
	})
}
