package currency

import (
	"strings"

	"golang.org/x/text/language"
)

var (
	localeCurrencies = map[string]string{
		"en-US": "USD", "en-GB": "GBP", "en-CA": "CAD", "fr-CA": "CAD", "en-AU": "AUD",
		"en-NZ": "NZD", "en-IE": "EUR", "en-IN": "INR", "hi-IN": "INR", "en-SG": "SGD",
		"zh-SG": "SGD", "en-ZA": "ZAR", "en-HK": "HKD", "zh-HK": "HKD", "zh-CN": "CNY",
		"zh-TW": "USD", "de-DE": "EUR", "de-AT": "EUR", "de-CH": "CHF", "fr-CH": "CHF",
		"it-CH": "CHF", "fr-FR": "EUR", "fr-BE": "EUR", "nl-BE": "EUR", "nl-NL": "EUR",
		"it-IT": "EUR", "es-ES": "EUR", "es-MX": "MXN", "pt-BR": "BRL", "pt-PT": "EUR",
		"ja-JP": "JPY", "ko-KR": "KRW", "sv-SE": "SEK", "nb-NO": "NOK", "nn-NO": "NOK",
		"da-DK": "DKK", "ar-AE": "AED", "fi-FI": "EUR",
	}

	languageCurrencies = map[string]string{
		"en": "USD", "de": "EUR", "fr": "EUR", "it": "EUR", "es": "EUR", "nl": "EUR",
		"fi": "EUR", "pt": "BRL", "ja": "JPY", "ko": "KRW", "zh": "CNY", "hi": "INR",
		"sv": "SEK", "nb": "NOK", "nn": "NOK", "no": "NOK", "da": "DKK", "ar": "AED",
	}
)

// DetectCurrency maps a locale such as "en-GB" or "pt_BR" to a currency: the full locale
// first, then its language, then USD.
func DetectCurrency(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
	if err != nil {
		return Default
	}
	return detectTag(tag)
}

func detectTag(tag language.Tag) string {
	base, _ := tag.Base()
	if region, conf := tag.Region(); conf == language.Exact {
		if code, ok := localeCurrencies[base.String()+"-"+region.String()]; ok {
			return code
		}
	}
	if code, ok := languageCurrencies[base.String()]; ok {
		return code
	}
	return Default
}

// DetectFromAcceptLanguage picks the currency of the preferred language of an Accept-Language header.
func DetectFromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Default
	}
	return detectTag(tags[0])
}

// Preferred resolves the display currency: explicit choice, then saved preference, then
// the Accept-Language header.
func Preferred(explicit, saved, acceptLanguage string) string {
	for _, code := range []string{explicit, saved} {
		if IsSupported(code) {
			return strings.ToUpper(strings.TrimSpace(code))
		}
	}
	if acceptLanguage != "" {
		return DetectFromAcceptLanguage(acceptLanguage)
	}
	return Default
}
