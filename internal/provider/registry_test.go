package provider

import (
	"context"
	"testing"

	"github.com/yichenlu/sensereader/pkg/types"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	t.Run("Register and get", func(t *testing.T) {
		p := NewStubTTSProvider(types.ProviderConfig{Name: "stub"})
		if err := reg.RegisterTTS(p); err != nil {
			t.Fatalf("RegisterTTS failed: %v", err)
		}
		got, err := reg.GetTTS("stub")
		if err != nil || got.Name() != "stub" {
			t.Errorf("GetTTS = %v, %v", got, err)
		}
	})

	t.Run("Duplicate rejected", func(t *testing.T) {
		p := NewStubTTSProvider(types.ProviderConfig{Name: "stub"})
		if err := reg.RegisterTTS(p); err == nil {
			t.Error("Duplicate registration should fail")
		}
	})

	t.Run("Missing provider", func(t *testing.T) {
		if _, err := reg.GetTTS("nope"); err == nil {
			t.Error("Expected error for unknown provider")
		}
	})

	t.Run("FirstTTS deterministic", func(t *testing.T) {
		reg.RegisterTTS(NewStubTTSProvider(types.ProviderConfig{Name: "alpha"}))
		if got := reg.FirstTTS(); got.Name() != "alpha" {
			t.Errorf("FirstTTS = %s, want alpha (lexical first)", got.Name())
		}
	})
}

func TestInitializeProviders(t *testing.T) {
	reg := NewRegistry()
	err := reg.InitializeProviders(types.ProvidersConfig{
		TTS: []types.ProviderConfig{
			{Name: "stub-tts", Enabled: true},
			{Name: "disabled", Enabled: false},
		},
		STT:    []types.ProviderConfig{{Name: "stub-stt", Enabled: true}},
		Vision: []types.ProviderConfig{{Name: "stub-vision", Enabled: true}},
	})
	if err != nil {
		t.Fatalf("InitializeProviders failed: %v", err)
	}

	if got := reg.ListTTS(); len(got) != 1 || got[0] != "stub-tts" {
		t.Errorf("ListTTS = %v", got)
	}
	if reg.FirstSTT() == nil {
		t.Error("STT stub not registered")
	}
	if reg.FirstVision() == nil {
		t.Error("Vision stub not registered")
	}
	if reg.FirstText() != nil {
		t.Error("Text classifier without endpoint should not register")
	}
}

func TestStubTTS_Deterministic(t *testing.T) {
	p := NewStubTTSProvider(types.ProviderConfig{Name: "stub"})
	ctx := context.Background()

	req := TTSRequest{
		Text:    "hello world",
		Prosody: types.ProsodyPreset{VoiceID: "cheerful", Rate: 1.1},
	}
	first, err := p.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, _ := p.Synthesize(ctx, req)

	if first.AudioURL == "" {
		t.Fatal("Stub should return an opaque URL")
	}
	if first.AudioURL != second.AudioURL {
		t.Error("Identical requests should yield the same URL")
	}
	if first.Voice != "cheerful" {
		t.Errorf("Voice = %s, want prosody voice", first.Voice)
	}
	if first.DurationSeconds <= 0 {
		t.Errorf("Duration = %f, want > 0", first.DurationSeconds)
	}

	voices, err := p.ListVoices(ctx)
	if err != nil || len(voices) == 0 {
		t.Errorf("ListVoices = %v, %v", voices, err)
	}
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name          string
		device        string
		memoryMB      int
		preferQuality bool
		chosen        string
	}{
		{"Big desktop", "generic_display", 16384, false, "emotion-full"},
		{"Mid laptop", "generic_display", 4096, false, "emotion-distil"},
		{"Tiny phone", "generic_display", 1024, false, "emotion-tiny"},
		{"Tiny phone prefers quality", "generic_display", 1024, true, "emotion-distil"},
		{"Watch never gets full", "watch", 16384, false, "emotion-distil"},
		{"Glasses capped", "ar_glasses", 16384, true, "emotion-distil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice := SelectModel(tt.device, tt.memoryMB, tt.preferQuality)
			if choice.Chosen != tt.chosen {
				t.Errorf("Chosen = %s, want %s", choice.Chosen, tt.chosen)
			}
			if choice.Fallback == choice.Chosen {
				t.Error("Fallback should differ from the choice")
			}
			if len(choice.Reasons) == 0 {
				t.Error("Expected at least one reason")
			}
		})
	}
}
