package lobby

import "github.com/andersfylling/tango/internal/protocol"

// CompatibleSettings reports whether two peers can actually play each
// other: each side must own the game the other selected, and any patch
// a side selected must be available on the peer's side in the same
// version.
func CompatibleSettings(local, remote protocol.Settings) bool {
	if local.MatchType != remote.MatchType {
		return false
	}
	return sideCompatible(local, remote) && sideCompatible(remote, local)
}

// sideCompatible checks that the peer can mirror one side's selection
func sideCompatible(side, peer protocol.Settings) bool {
	if side.GameInfo == nil {
		return false
	}

	if !containsGame(peer.AvailableGames, side.GameInfo.Title) {
		return false
	}

	if patch := side.GameInfo.Patch; patch != nil {
		if !hasPatchVersion(peer.AvailablePatches, patch.Name, patch.Version) {
			return false
		}
	}

	return true
}

func containsGame(games []string, title string) bool {
	for _, g := range games {
		if g == title {
			return true
		}
	}
	return false
}

func hasPatchVersion(patches []protocol.PatchInfo, name, version string) bool {
	for _, p := range patches {
		if p.Name != name {
			continue
		}
		for _, v := range p.Versions {
			if v == version {
				return true
			}
		}
	}
	return false
}
