package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bgm-tracker/tracker/bgm"
	"github.com/bgm-tracker/tracker/store"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tidwall/gjson"
)

const upstreamDate = "Tue, 19 Jun 2018 14:32:18 GMT"

// fakeBgm answers the token endpoint like bgm.tv does.
func fakeBgm() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		w.Header().Set("Date", upstreamDate)

		var grant string
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			grant = gjson.GetBytes(raw, "refresh_token").String()
		} else {
			form, _ := url.ParseQuery(string(raw))
			grant = form.Get("code")
		}
		switch grant {
		case "html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, "<html>maintenance</html>")
		case "bad", "expired":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid grant"}`)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"at-`+grant+`","expires_in":604800,"token_type":"Bearer","scope":null,"user_id":42,"refresh_token":"rt"}`)
		}
	}))
}

type failingStore struct {
	store.Store
}

func (failingStore) InsertMissing(context.Context, store.MissingReport) error {
	return errors.New("disk full")
}

type fixture struct {
	store   *store.SQLite
	handler http.Handler
	bgm     *bgm.Client
}

func newFixture(upstream *httptest.Server, wrap func(store.Store) store.Store) fixture {
	st := lo.Must(store.Open(":memory:"))

	client := bgm.New("bgm123", "s3cret", "https://bangumi-auto-tracker.trim21.cn/oauth_callback")
	client.TokenURL = upstream.URL
	client.HTTP = upstream.Client()

	var s store.Store = st
	if wrap != nil {
		s = wrap(st)
	}

	srv := lo.Must(New(s, client, WithMissingLimit(3)))
	return fixture{store: st, handler: srv.Handler(), bgm: client}
}

func (f fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a server backed by a fake bgm.tv", t, func() {
		upstream := fakeBgm()
		defer upstream.Close()

		f := newFixture(upstream, nil)
		defer f.store.Close()

		Convey("Root redirects to the project page", func() {
			rec := f.do(http.MethodGet, "/", "")
			So(rec.Code, ShouldEqual, http.StatusFound)
			So(rec.Header().Get("Location"), ShouldEqual, "https://github.com/Trim21/bilibili-bangumi-tv-auto-tracker")
		})

		Convey("Every response carries a request id", func() {
			rec := f.do(http.MethodGet, "/api/v0.1/missing_bangumi", "")
			So(rec.Header().Get(RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("CORS", func() {
			Convey("echoes the origin with credentials", func() {
				rec := f.do(http.MethodGet, "/api/v0.1/missing_bangumi", "", "Origin", "https://www.bilibili.com")
				So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://www.bilibili.com")
				So(rec.Header().Get("Access-Control-Allow-Credentials"), ShouldEqual, "true")
				So(rec.Header().Get("Access-Control-Expose-Headers"), ShouldContainSubstring, RequestIDHeader)
			})

			Convey("answers preflight with 204", func() {
				rec := f.do(http.MethodOptions, "/api/v0.1/reportMissingBangumi", "",
					"Origin", "https://www.iqiyi.com",
					"Access-Control-Request-Method", "POST",
					"Access-Control-Request-Headers", "content-type,x-custom")
				So(rec.Code, ShouldEqual, http.StatusNoContent)
				So(rec.Header().Get("Access-Control-Allow-Methods"), ShouldEqual, "POST")
				So(rec.Header().Get("Access-Control-Allow-Headers"), ShouldEqual, "content-type,x-custom")
			})
		})

		Convey("OAuth callback", func() {
			Convey("renders the example token without a code", func() {
				rec := f.do(http.MethodGet, "/oauth_callback", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(rec.Body.String(), ShouldContainSubstring, "example_access_token")
			})

			Convey("exchanges a code and stores the token", func() {
				rec := f.do(http.MethodGet, "/oauth_callback?code=good", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "at-good")

				doc, err := f.store.GetToken(ctx, "42")
				So(err, ShouldBeNil)
				So(gjson.GetBytes(doc, "access_token").String(), ShouldEqual, "at-good")
				So(gjson.GetBytes(doc, "auth_time").Int(), ShouldEqual, 1529418738)
				So(gjson.GetBytes(doc, "_id").Exists(), ShouldBeFalse)
			})

			Convey("passes upstream errors through with 400", func() {
				rec := f.do(http.MethodGet, "/oauth_callback?code=bad", "")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(gjson.Get(rec.Body.String(), "error").String(), ShouldEqual, "invalid_grant")
			})

			Convey("restarts authorization when bgm.tv answers with HTML", func() {
				rec := f.do(http.MethodGet, "/oauth_callback?code=html", "")
				So(rec.Code, ShouldEqual, http.StatusFound)
				So(rec.Header().Get("Location"), ShouldEqual, f.bgm.AuthorizeURL())
			})
		})

		Convey("Token refresh", func() {
			Convey("requires both fields", func() {
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":"x"}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"user_id":42}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":"","user_id":42}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `not json`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("treats empty objects and arrays as missing", func() {
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":{},"user_id":1}`).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":"x","user_id":[]}`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("returns upstream errors with 200", func() {
				rec := f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":"expired","user_id":42}`)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(rec.Body.String(), "error").String(), ShouldEqual, "invalid_grant")
			})

			Convey("stamps, stores and returns the new token", func() {
				rec := f.do(http.MethodPost, "/api/v0.1/refresh_token", `{"refresh_token":"fresh","user_id":42}`)
				So(rec.Code, ShouldEqual, http.StatusOK)

				body := rec.Body.String()
				So(gjson.Get(body, "access_token").String(), ShouldEqual, "at-fresh")
				So(gjson.Get(body, "_id").Int(), ShouldEqual, 42)
				So(gjson.Get(body, "auth_time").Int(), ShouldEqual, 1529418738)

				doc := lo.Must(f.store.GetToken(ctx, "42"))
				So(gjson.GetBytes(doc, "access_token").String(), ShouldEqual, "at-fresh")
			})
		})

		Convey("Missing reports", func() {
			report := func(id string) string {
				return `{"bangumiID":` + id + `,"subjectID":"253047","title":"Yuru Camp","href":"https://www.bilibili.com/bangumi/play/ss` + id + `","website":"bilibili"}`
			}

			Convey("accept a numeric bangumiID", func() {
				rec := f.do(http.MethodPost, "/api/v0.1/reportMissingBangumi", report("28220978"))
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Body.String(), ShouldEqual, `{"status":"success"}`)

				reports := lo.Must(f.store.ListMissing(ctx, 10))
				So(len(reports), ShouldEqual, 1)
				So(reports[0].BangumiID, ShouldEqual, "28220978")
			})

			Convey("reject invalid reports", func() {
				rec := f.do(http.MethodPost, "/api/v0.1/reportMissingBangumi", `{"bangumiID":"1","website":"youtube"}`)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)

				body := rec.Body.String()
				So(gjson.Get(body, "status").String(), ShouldEqual, "error")
				So(gjson.Get(body, "code").Int(), ShouldEqual, 400)
				So(gjson.Get(body, "message").String(), ShouldNotBeEmpty)
			})

			Convey("list oldest first up to the limit without ids", func() {
				for _, id := range []string{"1", "2", "3", "4"} {
					So(f.do(http.MethodPost, "/api/v0.1/reportMissingBangumi", report(id)).Code, ShouldEqual, http.StatusCreated)
				}

				rec := f.do(http.MethodGet, "/api/v0.1/missing_bangumi", "")
				So(rec.Code, ShouldEqual, http.StatusOK)

				var listed []map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &listed), ShouldBeNil)
				So(len(listed), ShouldEqual, 3)
				So(listed[0]["bangumiID"], ShouldEqual, "1")
				So(listed[2]["bangumiID"], ShouldEqual, "3")
				So(listed[0], ShouldNotContainKey, "_id")
			})

			Convey("answer 502 when the store fails", func() {
				failing := newFixture(upstream, func(s store.Store) store.Store { return failingStore{s} })
				defer failing.store.Close()

				rec := failing.do(http.MethodPost, "/api/v0.1/reportMissingBangumi", report("1"))
				So(rec.Code, ShouldEqual, http.StatusBadGateway)
				So(gjson.Get(rec.Body.String(), "message").String(), ShouldEqual, "disk full")
			})
		})

		Convey("Subject lookup", func() {
			So(f.store.PutSubject(ctx, "bilibili", "28220978", []byte(`{"_id":"28220978","subject_id":"253047"}`)), ShouldBeNil)

			Convey("finds a stored mapping", func() {
				rec := f.do(http.MethodGet, "/api/v0.2/querySubjectID?website=bilibili&bangumiID=28220978", "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gjson.Get(rec.Body.String(), "subject_id").String(), ShouldEqual, "253047")
			})

			Convey("answers 404 for unknown seasons", func() {
				rec := f.do(http.MethodGet, "/api/v0.2/querySubjectID?website=iqiyi&bangumiID=28220978", "")
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("rejects unknown websites and missing ids", func() {
				So(f.do(http.MethodGet, "/api/v0.2/querySubjectID?website=youtube&bangumiID=1", "").Code, ShouldEqual, http.StatusBadRequest)
				So(f.do(http.MethodGet, "/api/v0.2/querySubjectID?website=bilibili", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running server", t, func() {
		st := lo.Must(store.Open(":memory:"))
		defer st.Close()

		client := bgm.New("bgm123", "s3cret", "https://bangumi-auto-tracker.trim21.cn/oauth_callback")
		srv := lo.Must(New(st, client))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- srv.Run(ctx, "127.0.0.1:0") }()

		Convey("cancelling the context shuts it down cleanly", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(5 * time.Second):
				So("server did not stop", ShouldBeEmpty)
			}
		})
	})

	Convey("Given an address that cannot be bound", t, func() {
		st := lo.Must(store.Open(":memory:"))
		defer st.Close()

		srv := lo.Must(New(st, bgm.New("id", "secret", "")))
		err := srv.Run(context.Background(), "127.0.0.1:-1")
		So(err, ShouldNotBeNil)
	})
}

func TestTruthy(t *testing.T) {
	Convey("truthy", t, func() {
		for _, tc := range []struct {
			doc  string
			want bool
		}{
			{`{"v":"x"}`, true},
			{`{"v":""}`, false},
			{`{"v":1}`, true},
			{`{"v":0}`, false},
			{`{"v":true}`, true},
			{`{"v":false}`, false},
			{`{"v":null}`, false},
			{`{"v":{}}`, false},
			{`{"v":[]}`, false},
			{`{"v":{"a":1}}`, true},
			{`{"v":[0]}`, true},
			{`{}`, false},
		} {
			So(truthy(gjson.Get(tc.doc, "v")), ShouldEqual, tc.want)
		}
	})
}
