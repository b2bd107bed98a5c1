package config

const (
	defaultStateDir               = "~/.local/share/racefeed"
	defaultLogDir                 = "~/.local/share/racefeed/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultSheetsBackend          = "google"
	defaultWorksheetName          = "Races"
	defaultCredentialsFile        = "google-credentials.json"
	defaultSheetsCacheTTLSeconds  = 300
	defaultSheetsLoadAttempts     = 3
	defaultSheetsLoadDelaySeconds = 2.0
	defaultSheetsUpdateAttempts   = 3
	defaultSheetsUpdateDelay      = 1.0
	defaultGenerationBaseURL      = "https://api.openai.com/v1"
	defaultGenerationTimeout      = 180
	defaultTextModel              = "gpt-4.1"
	defaultSecondModel            = "gpt-4.1-mini"
	defaultTranslationModel       = "gpt-4o-mini"
	defaultImageModel             = "gpt-image-1"
	defaultImageSize              = "1024x1024"
	defaultImageQuality           = "high"
	defaultMaxInputChars          = 40000
	defaultPlaceholderImageURL    = "https://dev.racefinder.pt/wp-content/uploads/2025/07/img-placeholder.png"
	defaultGeocodingBaseURL       = "https://api.opencagedata.com/geocode/v1/json"
	defaultGeocodingCountry       = "pt"
	defaultGeocodingLanguage      = "en"
	defaultGeocodingLimit         = 5
	defaultGeocodingTimeout       = 15
	defaultFetchUserAgent         = "Mozilla/5.0 (compatible; racefeed/1.0)"
	defaultFetchTimeout           = 30
	defaultMaxDocumentBytes       = 25 << 20
	defaultEventBaseURL           = "https://dev.racefinder.pt/event"
	defaultTranslationLanguage    = "pt"
	defaultEventCountry           = "portugal"
	defaultCatalogAttempts        = 4
	defaultCatalogDelaySeconds    = 1.5
	defaultCatalogTimeout         = 60
	defaultCatalogRPS             = 5
	defaultScheduleHour           = 3
	defaultScheduleTimezone       = "Europe/Lisbon"
	defaultQuickRetrySeconds      = 300
	defaultJournalDriver          = "sqlite"
	defaultArchiveDriver          = "fs"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Sheets: Sheets{
			Backend:                defaultSheetsBackend,
			WorksheetName:          defaultWorksheetName,
			CredentialsFile:        defaultCredentialsFile,
			CacheTTLSeconds:        defaultSheetsCacheTTLSeconds,
			LoadMaxAttempts:        defaultSheetsLoadAttempts,
			LoadBaseDelaySeconds:   defaultSheetsLoadDelaySeconds,
			UpdateMaxAttempts:      defaultSheetsUpdateAttempts,
			UpdateBaseDelaySeconds: defaultSheetsUpdateDelay,
		},
		Generation: Generation{
			BaseURL:             defaultGenerationBaseURL,
			TimeoutSeconds:      defaultGenerationTimeout,
			TextModel:           defaultTextModel,
			SecondModel:         defaultSecondModel,
			TranslationModel:    defaultTranslationModel,
			ImageModel:          defaultImageModel,
			ImageSize:           defaultImageSize,
			ImageQuality:        defaultImageQuality,
			MaxInputChars:       defaultMaxInputChars,
			SkipImage:           true,
			PlaceholderImageURL: defaultPlaceholderImageURL,
		},
		Geocoding: Geocoding{
			BaseURL:        defaultGeocodingBaseURL,
			CountryCode:    defaultGeocodingCountry,
			Language:       defaultGeocodingLanguage,
			Limit:          defaultGeocodingLimit,
			TimeoutSeconds: defaultGeocodingTimeout,
		},
		Fetch: Fetch{
			UserAgent:        defaultFetchUserAgent,
			TimeoutSeconds:   defaultFetchTimeout,
			RetryDelays:      []float64{1, 3},
			MaxDocumentBytes: defaultMaxDocumentBytes,
		},
		Catalog: Catalog{
			EventBaseURL:        defaultEventBaseURL,
			TranslationLanguage: defaultTranslationLanguage,
			EventCountry:        defaultEventCountry,
			MaxAttempts:         defaultCatalogAttempts,
			BaseDelaySeconds:    defaultCatalogDelaySeconds,
			TimeoutSeconds:      defaultCatalogTimeout,
			RequestsPerSecond:   defaultCatalogRPS,
		},
		Schedule: Schedule{
			RunOnStartup:      true,
			Hour:              defaultScheduleHour,
			Timezone:          defaultScheduleTimezone,
			QuickRetrySeconds: defaultQuickRetrySeconds,
		},
		Journal: Journal{
			Driver: defaultJournalDriver,
		},
		Archive: Archive{
			Driver: defaultArchiveDriver,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			PassSummary:    true,
			GroupFailures:  true,
			BatchFailures:  true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
