package game

import (
	"github.com/rs/zerolog/log"

	"github.com/andersfylling/tango/internal/emulator"
)

// ROM header locations used to identify the loaded game
const (
	romTitleAddr    = 0x080000a0
	romRevisionAddr = 0x080000bc
)

// Lookup identifies the loaded ROM by the 16 bytes of its header
// title and returns the adapter for it, or nil if the game is not
// supported. Adapters are singletons: the same identity is returned
// for every core running the same variant.
func Lookup(core emulator.Core) Adapter {
	title := string(core.RawReadRange(romTitleAddr, -1, 16))

	switch title {
	case "MEGA_EXE3_BLA3XE":
		return megaExe3BLA3XE
	case "MEGA_EXE3_WHA6BE":
		return megaExe3WHA6BE
	case "MEGAMAN6_FXXBR6E":
		return megaman6FXXBR6E
	case "MEGAMAN6_GXXBR5E":
		return megaman6GXXBR5E
	case "ROCKEXE6_RXXBR6J":
		return rockExe6RXXBR6J
	case "ROCKEXE6_GXXBR5J":
		return rockExe6GXXBR5J
	case "MEGAMAN5_TP_BRBE":
		return megaman5TPBRBE
	case "MEGAMAN5_TC_BRKE":
		return megaman5TCBRKE
	case "ROCKEXE5_TOBBRBJ":
		return rockExe5TOBBRBJ
	case "ROCKEXE5_TOCBRKJ":
		return rockExe5TOCBRKJ
	case "MEGAMANBN4BMB4BE":
		return megamanBN4BMB4BE
	case "MEGAMANBN4RSB4WE":
		return megamanBN4RSB4WE
	case "ROCK_EXE4_BMB4BJ":
		// Japanese BN4 shipped two revisions distinguished only by
		// the header revision byte.
		switch core.RawRead8(romRevisionAddr, -1) {
		case 0x00:
			log.Info().Msg("this is blue moon 1.0")
			return rockExe4BMB4BJ10
		case 0x01:
			log.Info().Msg("this is blue moon 1.1")
			return rockExe4BMB4BJ11
		default:
			return nil
		}
	case "ROCK_EXE4_RSB4WJ":
		switch core.RawRead8(romRevisionAddr, -1) {
		case 0x00:
			log.Info().Msg("this is red sun 1.0")
			return rockExe4RSB4WJ10
		case 0x01:
			log.Info().Msg("this is red sun 1.1")
			return rockExe4RSB4WJ11
		default:
			return nil
		}
	}

	return nil
}
