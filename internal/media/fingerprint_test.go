package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPathEpisode(t *testing.T) {
	fp := FromPath("/media/tv/Breaking.Bad.S03E07.1080p.WEB-DL.x264.mkv")
	assert.Equal(t, KindEpisode, fp.Kind)
	assert.Equal(t, 3, fp.Season)
	assert.Equal(t, 7, fp.Episode)
	assert.Equal(t, "Breaking Bad", fp.Title)
	assert.Contains(t, fp.ReleaseTokens, "1080p")
	assert.Contains(t, fp.ReleaseTokens, "x264")
}

func TestFromPathMovie(t *testing.T) {
	fp := FromPath("/media/movies/Arrival.2016.2160p.BluRay.x265.mkv")
	assert.Equal(t, KindMovie, fp.Kind)
	assert.Equal(t, 2016, fp.Year)
	assert.Equal(t, "Arrival", fp.Title)
}

func TestCacheKeyQueryStable(t *testing.T) {
	fp := FromPath("/media/tv/Show.S01E02.mkv")
	a := fp.CacheKeyQuery()
	b := FromPath("/media/tv/Show.S01E02.mkv").CacheKeyQuery()
	assert.Equal(t, a, b)
}
