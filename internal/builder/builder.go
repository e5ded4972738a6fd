package builder

import (
	"fmt"

	"golang.org/x/time/rate"

	"github.com/shouni/go-anime-kit/internal/config"
	kitconfig "github.com/shouni/go-anime-kit/pkg/config"
	"github.com/shouni/go-anime-kit/pkg/domain"
	"github.com/shouni/go-anime-kit/pkg/generator"
	"github.com/shouni/go-anime-kit/pkg/media"
	"github.com/shouni/go-anime-kit/pkg/runner"
	"github.com/shouni/go-anime-kit/pkg/verify"
)

// BuildKitConfig は環境設定と CLI オプションを合成パイプライン用の設定へ畳み込みます。
func BuildKitConfig(cfg *config.Config) kitconfig.Config {
	kitCfg := kitconfig.DefaultConfig()
	kitCfg.ClipGeneratorBin = cfg.ClipGeneratorBin
	kitCfg.SpeechGeneratorBin = cfg.SpeechGeneratorBin
	kitCfg.MusicGeneratorBin = cfg.MusicGeneratorBin
	kitCfg.AlignerBin = cfg.AlignerBin

	if cfg.Options.ClipDurationMs > 0 {
		kitCfg.ClipDurationMs = cfg.Options.ClipDurationMs
	}
	if cfg.Options.MusicVolume > 0 {
		kitCfg.MusicVolume = cfg.Options.MusicVolume
	}
	return kitCfg
}

// mediaToolchain は ffmpeg / ffprobe を共有する後段コンポーネントの束です。
type mediaToolchain struct {
	prober   *media.Prober
	syncer   *media.ClipSync
	concat   *media.Concatenator
	burner   *media.Burner
	mixer    *media.MusicMixer
	verifier *verify.Verifier
}

// buildMediaToolchain は1つの Prober を共有するツールチェーンを構築します。
func buildMediaToolchain(kitCfg kitconfig.Config) mediaToolchain {
	prober := media.NewProber(nil)
	normalizer := media.NewNormalizer(prober, nil, kitCfg.Profile)
	return mediaToolchain{
		prober:   prober,
		syncer:   media.NewClipSync(prober, nil),
		concat:   media.NewConcatenator(prober, nil, normalizer),
		burner:   media.NewBurner(prober, nil, kitCfg.Profile),
		mixer:    media.NewMusicMixer(prober, nil),
		verifier: verify.NewVerifier(prober),
	}
}

// buildComposer は外部ジェネレーターを束ねた AnimeComposer を構築します。
func buildComposer(appCtx *AppContext, chars domain.CharactersMap) *generator.AnimeComposer {
	kitCfg := appCtx.KitConfig
	limiter := rate.NewLimiter(rate.Every(kitCfg.RateInterval), 1)

	return generator.NewAnimeComposer(
		generator.NewCommandClipGenerator(kitCfg.ClipGeneratorBin, nil, nil),
		generator.NewCommandSpeechGenerator(kitCfg.SpeechGeneratorBin, nil, nil),
		generator.NewCommandMusicGenerator(kitCfg.MusicGeneratorBin, nil, nil),
		generator.NewCommandAligner(kitCfg.AlignerBin, nil, nil),
		chars,
		limiter,
	)
}

// BuildAnimateRunner は対話モードの実行を担当する Runner を構築します。
func BuildAnimateRunner(appCtx *AppContext) (*runner.AnimateRunner, error) {
	chars, err := domain.LoadCharacters(appCtx.Options.CharacterConfig)
	if err != nil {
		return nil, fmt.Errorf("キャラクター情報の取得に失敗しました: %w", err)
	}

	composer := buildComposer(appCtx, chars)
	tc := buildMediaToolchain(appCtx.KitConfig)

	clips := generator.NewClipBatchGenerator(composer)
	clips.RequestTimeout = appCtx.KitConfig.RequestTimeout
	speech := generator.NewSpeechBatchGenerator(composer)
	speech.RequestTimeout = appCtx.KitConfig.RequestTimeout

	return runner.NewAnimateRunner(
		appCtx.KitConfig,
		clips,
		speech,
		composer.Aligner,
		tc.syncer,
		tc.concat,
		tc.burner,
		tc.verifier,
		appCtx.Writer,
	), nil
}

// BuildMusicRunner は音楽モードの実行を担当する Runner を構築します。
func BuildMusicRunner(appCtx *AppContext) (*runner.MusicRunner, error) {
	chars, err := domain.LoadCharacters(appCtx.Options.CharacterConfig)
	if err != nil {
		// 音楽モードは話者を使わないため、キャラクター設定がなくても続行できる
		chars = domain.CharactersMap{}
	}

	composer := buildComposer(appCtx, chars)
	tc := buildMediaToolchain(appCtx.KitConfig)

	clips := generator.NewClipBatchGenerator(composer)
	clips.RequestTimeout = appCtx.KitConfig.RequestTimeout

	return runner.NewMusicRunner(
		appCtx.KitConfig,
		clips,
		composer.MusicGenerator,
		tc.concat,
		tc.mixer,
		tc.burner,
		tc.verifier,
		appCtx.Writer,
	), nil
}

// BuildVerifier は verify サブコマンド用の検証器を構築します。
func BuildVerifier() *verify.Verifier {
	return verify.NewVerifier(media.NewProber(nil))
}
