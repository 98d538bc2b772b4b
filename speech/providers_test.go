package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepgramSTT_Transcribe(t *testing.T) {
	t.Run("raw audio upload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/listen", r.URL.Path)
			assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
			assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
			assert.Equal(t, "true", r.URL.Query().Get("smart_format"))
			_, _ = w.Write([]byte(`{
				"metadata": {"duration": 2.5},
				"results": {"channels": [{"alternatives": [{
					"transcript": "what are your business hours",
					"confidence": 0.98,
					"words": [{"word":"what","start":0.1,"end":0.3,"confidence":0.99}]
				}]}]}
			}`))
		}))
		defer srv.Close()

		p := NewDeepgramSTTProvider(DeepgramConfig{APIKey: "dg-key", BaseURL: srv.URL})
		resp, err := p.Transcribe(context.Background(), &STTRequest{
			Audio: strings.NewReader("fake-audio-bytes"),
		})
		require.NoError(t, err)
		assert.Equal(t, "what are your business hours", resp.Text)
		assert.InDelta(t, 0.98, resp.Confidence, 1e-9)
		require.Len(t, resp.Words, 1)
		assert.Equal(t, "what", resp.Words[0].Word)
	})

	t.Run("url reference", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "https://example.com/a.mp3")
			_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"ok"}]}]}}`))
		}))
		defer srv.Close()

		p := NewDeepgramSTTProvider(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
		resp, err := p.Transcribe(context.Background(), &STTRequest{AudioURL: "https://example.com/a.mp3"})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text)
	})

	t.Run("missing audio rejected", func(t *testing.T) {
		p := NewDeepgramSTTProvider(DeepgramConfig{APIKey: "k"})
		_, err := p.Transcribe(context.Background(), &STTRequest{})
		assert.Error(t, err)
	})

	t.Run("upstream error surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"err_msg":"invalid credentials"}`))
		}))
		defer srv.Close()

		p := NewDeepgramSTTProvider(DeepgramConfig{APIKey: "bad", BaseURL: srv.URL})
		_, err := p.Transcribe(context.Background(), &STTRequest{Audio: strings.NewReader("x")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=401")
	})
}

func TestDeepgramTTS_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speak", r.URL.Path)
		assert.Equal(t, "aura-asteria-en", r.URL.Query().Get("model"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Hello there")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p := NewDeepgramTTSProvider(DeepgramConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := p.Synthesize(context.Background(), &TTSRequest{Text: "Hello there"})
	require.NoError(t, err)
	defer resp.Audio.Close()

	audio, err := io.ReadAll(resp.Audio)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio))
	assert.Equal(t, "deepgram-tts", resp.Provider)
}

func TestDeepgramTTS_EmptyTextRejected(t *testing.T) {
	p := NewDeepgramTTSProvider(DeepgramConfig{APIKey: "k"})
	_, err := p.Synthesize(context.Background(), &TTSRequest{Text: "   "})
	assert.Error(t, err)
}

func TestCartesia_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tts/bytes", r.URL.Path)
		assert.Equal(t, "ca-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, cartesiaVersion, r.Header.Get("Cartesia-Version"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"model_id":"sonic-english"`)
		assert.Contains(t, string(body), `"id":"clara"`)
		assert.Contains(t, string(body), `"container":"raw"`)
		_, _ = w.Write([]byte("pcm-bytes"))
	}))
	defer srv.Close()

	p := NewCartesiaProvider(CartesiaConfig{APIKey: "ca-key", BaseURL: srv.URL, VoiceID: "clara"})
	resp, err := p.Synthesize(context.Background(), &TTSRequest{Text: "Hi, how can I help?"})
	require.NoError(t, err)
	defer resp.Audio.Close()

	audio, err := io.ReadAll(resp.Audio)
	require.NoError(t, err)
	assert.Equal(t, "pcm-bytes", string(audio))
}

func TestCartesia_VoiceRequired(t *testing.T) {
	p := NewCartesiaProvider(CartesiaConfig{APIKey: "k"})
	_, err := p.Synthesize(context.Background(), &TTSRequest{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice id")
}

func TestOpenAISTT_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		_, _ = w.Write([]byte(`{"text":"I was charged twice","language":"en","duration":1.8}`))
	}))
	defer srv.Close()

	p := NewOpenAISTTProvider(OpenAISTTConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := p.Transcribe(context.Background(), &STTRequest{Audio: strings.NewReader("audio")})
	require.NoError(t, err)
	assert.Equal(t, "I was charged twice", resp.Text)
	assert.Equal(t, "en", resp.Language)
}

func TestOpenAITTS_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"voice":"alloy"`)
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p := NewOpenAITTSProvider(OpenAITTSConfig{APIKey: "k", BaseURL: srv.URL})
	resp, err := p.Synthesize(context.Background(), &TTSRequest{Text: "hello"})
	require.NoError(t, err)
	defer resp.Audio.Close()
	assert.Equal(t, "openai-tts", resp.Provider)
}

func TestProviderNamesAndFormats(t *testing.T) {
	assert.Equal(t, "deepgram", NewDeepgramSTTProvider(DeepgramConfig{}).Name())
	assert.Equal(t, "cartesia", NewCartesiaProvider(CartesiaConfig{}).Name())
	assert.Contains(t, NewDeepgramSTTProvider(DeepgramConfig{}).SupportedFormats(), "wav")
	assert.Contains(t, NewOpenAISTTProvider(OpenAISTTConfig{}).SupportedFormats(), "mp3")
}

func TestNewSTTProvider(t *testing.T) {
	dg, err := NewSTTProvider("deepgram", DeepgramConfig{APIKey: "k"}, OpenAISTTConfig{})
	require.NoError(t, err)
	assert.Equal(t, "deepgram", dg.Name())

	oa, err := NewSTTProvider("openai", DeepgramConfig{}, OpenAISTTConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai-stt", oa.Name())

	_, err = NewSTTProvider("whisper-cpp", DeepgramConfig{}, OpenAISTTConfig{})
	assert.Error(t, err)
}
