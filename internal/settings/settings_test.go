package settings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/settings"
	"linkbio/internal/testsupport"
)

func TestIsIPExcluded(t *testing.T) {
	t.Run("excludes exact IP match", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)
		require.NoError(t, settings.SetupDefaultSettings(db, logger, settings.Defaults("home")))

		err := settings.CreateOrUpdateSetting(db, logger, settings.KeyExcludedIPs, "192.168.1.100")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.True(t, isExcluded, "The exact IP in the exclusion list should be excluded")

		isExcluded, err = settings.IsIPExcluded("192.168.1.101")
		require.NoError(t, err)
		assert.False(t, isExcluded, "A different IP should not be excluded")
	})

	t.Run("handles IPs with whitespace and ranges", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger, settings.Defaults("home")))

		err := settings.CreateOrUpdateSetting(db, logger, settings.KeyExcludedIPs, " 192.168.1.100 , 10.0.0.0/8 ")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.True(t, isExcluded)

		isExcluded, err = settings.IsIPExcluded("10.20.30.40")
		require.NoError(t, err)
		assert.True(t, isExcluded, "IPs inside an excluded range should be excluded")
	})

	t.Run("handles empty exclusion value", func(t *testing.T) {
		dbManager, logger := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		require.NoError(t, settings.SetupDefaultSettings(db, logger, settings.Defaults("home")))

		err := settings.CreateOrUpdateSetting(db, logger, settings.KeyExcludedIPs, "")
		require.NoError(t, err)

		isExcluded, err := settings.IsIPExcluded("192.168.1.100")
		require.NoError(t, err)
		assert.False(t, isExcluded, "With empty exclusion value, no IPs should be excluded")

		isExcluded, err = settings.IsIPExcluded("")
		require.NoError(t, err)
		assert.False(t, isExcluded)
	})
}

func TestSetupDefaultSettingsKeepsExistingValues(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, settings.KeyLandingTitle, "Custom"))
	require.NoError(t, settings.SetupDefaultSettings(db, logger, settings.Defaults("home")))

	title, err := settings.GetSetting(db, settings.KeyLandingTitle)
	require.NoError(t, err)
	assert.Equal(t, "Custom", title)

	slug, err := settings.GetSetting(db, settings.KeyLandingSlug)
	require.NoError(t, err)
	assert.Equal(t, "home", slug)
}

func TestGetSetting(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	_, err := settings.GetSetting(db, "missing")
	assert.ErrorIs(t, err, settings.ErrSettingNotFound)

	value, err := settings.GetSettingOr(db, "missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)

	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, "k", "v1"))
	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, "k", "v2"))
	value, err = settings.GetSetting(db, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	var count int64
	require.NoError(t, db.Model(&settings.Setting{}).Where("key = ?", "k").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetSettingsWithPrefix(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, settings.ButtonKeyPrefix+"Prime", "https://primevideo.com"))
	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, settings.ButtonKeyPrefix+"Buy Now", "https://shop.example"))
	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, settings.KeyLandingTitle, "x"))

	values, err := settings.GetSettingsWithPrefix(db, settings.ButtonKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Prime":   "https://primevideo.com",
		"Buy Now": "https://shop.example",
	}, values)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, settings.SplitList(" a, ,b ,"))
	assert.Nil(t, settings.SplitList(""))
}
