package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voice-aftercare/config"
	"voice-aftercare/dao"
	"voice-aftercare/internal/aiclient"
	"voice-aftercare/internal/tts"
	"voice-aftercare/route"
	"voice-aftercare/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("로거 생성 실패: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	store := newSessionStore(cfg, sugar)
	archive := newArchive(cfg, sugar)

	var llm service.LLMProvider = service.NoopLLM{}
	if cfg.LLM.Enabled {
		llm = aiclient.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, nil)
		sugar.Infof("[Main] Gemini 어시스턴트 사용: %s", cfg.LLM.Model)
	} else {
		sugar.Info("[Main] 규칙 기반 모드로 동작")
	}

	speech, err := newSpeech(cfg.TTS, sugar)
	if err != nil {
		sugar.Fatalf("[Main] 음성 합성 초기화 실패: %v", err)
	}

	dialogue := service.NewDialogue(cfg, llm, sugar)

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := route.NewHandler(gin.Default(), route.Services{
		Chat:           service.NewChatService(dialogue, store, archive, sugar),
		Voice:          service.NewVoiceService(dialogue, speech, archive, sugar),
		Speech:         speech,
		SpeechTimeout:  cfg.Dialogue.TTSTimeout(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            sugar,
	})

	sugar.Infof("[Main] 서버 시작: :%s", cfg.Server.Port)
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: handler}
	if err := srv.ListenAndServe(); err != nil {
		panic(err)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.Debug && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newSessionStore(cfg *config.Config, sugar *zap.SugaredLogger) dao.SessionStore {
	if cfg.Store.RedisAddr == "" {
		sugar.Info("[Main] 메모리 세션 저장소 사용")
		return dao.NewMemoryStore(cfg.Store.SessionTTL)
	}
	store := dao.NewRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, cfg.Store.SessionTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		sugar.Fatalf("[Main] Redis 연결 실패(%s): %v", cfg.Store.RedisAddr, err)
	}
	sugar.Infof("[Main] Redis 세션 저장소 사용: %s", cfg.Store.RedisAddr)
	return store
}

func newArchive(cfg *config.Config, sugar *zap.SugaredLogger) dao.ArchiveStore {
	if cfg.Store.ArchivePath == "" {
		return dao.NoopArchive{}
	}
	archive, err := dao.NewSQLiteArchive(cfg.Store.ArchivePath)
	if err != nil {
		sugar.Fatalf("[Main] 상담 기록 DB 열기 실패: %v", err)
	}
	sugar.Infof("[Main] 상담 기록 저장: %s", cfg.Store.ArchivePath)
	return archive
}

// newSpeech backend wrapped in the voice-friendly rewrite and the render cache
func newSpeech(cfg config.TTSConfig, sugar *zap.SugaredLogger) (tts.Provider, error) {
	var backend tts.Provider
	switch strings.ToLower(cfg.Provider) {
	case "google":
		g, err := tts.NewGoogleProvider(context.Background(), cfg.CredentialsFile, cfg.Voice, cfg.LanguageCode, cfg.SpeakingRate)
		if err != nil {
			return nil, err
		}
		backend = g
	case "openai":
		backend = tts.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel, cfg.Voice, cfg.OpenAIBaseURL, nil)
	default:
		sugar.Info("[Main] 음성 합성 비활성화, 텍스트만 전송")
		return tts.NoopProvider{}, nil
	}
	sugar.Infof("[Main] 음성 합성: %s", cfg.Provider)

	cached, err := tts.NewCached(backend, cfg.CacheSize, sugar)
	if err != nil {
		return nil, err
	}
	return tts.NewVoiceFriendly(cached, cfg.MaxChars), nil
}
