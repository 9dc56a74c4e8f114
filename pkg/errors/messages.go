package errors

import "strings"

// Language selects the catalogue used for user-facing messages
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// ParseLanguage normalizes a preference value; anything unknown is English
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ar", "ar-sa", "ar_sa", "arabic":
		return LanguageArabic
	default:
		return LanguageEnglish
	}
}

var catalogue = map[ErrorCode]map[Language]string{
	CodeInvalidProfile: {
		LanguageEnglish: "Your profile is incomplete. Please add your age, height and weight.",
		LanguageArabic:  "ملفك الشخصي غير مكتمل. يرجى إضافة العمر والطول والوزن.",
	},
	CodeValidationFailed: {
		LanguageEnglish: "The request is missing required information.",
		LanguageArabic:  "الطلب ينقصه بعض المعلومات المطلوبة.",
	},
	CodeAuthError: {
		LanguageEnglish: "Please sign in again to continue.",
		LanguageArabic:  "يرجى تسجيل الدخول مرة أخرى للمتابعة.",
	},
	CodeRateLimitExceeded: {
		LanguageEnglish: "You have reached your meal plan generation limit.",
		LanguageArabic:  "لقد وصلت إلى الحد الأقصى لإنشاء خطط الوجبات.",
	},
	CodeGenerationInProgress: {
		LanguageEnglish: "A meal plan for this week is already being generated.",
		LanguageArabic:  "يتم حاليا إنشاء خطة وجبات لهذا الأسبوع.",
	},
	CodeAIRateLimited: {
		LanguageEnglish: "The meal planner is busy right now. Please try again shortly.",
		LanguageArabic:  "مخطط الوجبات مشغول حاليا. يرجى المحاولة بعد قليل.",
	},
	CodeAITimeout: {
		LanguageEnglish: "Generating your meal plan took too long. Please try again.",
		LanguageArabic:  "استغرق إنشاء خطة الوجبات وقتا طويلا. يرجى المحاولة مرة أخرى.",
	},
	CodeAIServiceError: {
		LanguageEnglish: "The meal planner is temporarily unavailable. Please try again.",
		LanguageArabic:  "مخطط الوجبات غير متاح مؤقتا. يرجى المحاولة مرة أخرى.",
	},
	CodeAIResponseInvalid: {
		LanguageEnglish: "We could not read the generated meal plan. Please try again.",
		LanguageArabic:  "تعذر قراءة خطة الوجبات المنشأة. يرجى المحاولة مرة أخرى.",
	},
	CodeAIGenerationFailed: {
		LanguageEnglish: "We could not generate your meal plan. Please try again.",
		LanguageArabic:  "تعذر إنشاء خطة الوجبات. يرجى المحاولة مرة أخرى.",
	},
	CodeDatabaseError: {
		LanguageEnglish: "We could not save your meal plan. Please try again.",
		LanguageArabic:  "تعذر حفظ خطة الوجبات. يرجى المحاولة مرة أخرى.",
	},
	CodePlanEmpty: {
		LanguageEnglish: "Your previous meals were cleared but the new plan could not be saved. Please generate again.",
		LanguageArabic:  "تم حذف وجباتك السابقة لكن تعذر حفظ الخطة الجديدة. يرجى الإنشاء مرة أخرى.",
	},
	CodeUnknown: {
		LanguageEnglish: "Something went wrong. Please try again.",
		LanguageArabic:  "حدث خطأ ما. يرجى المحاولة مرة أخرى.",
	},
}

// Localize returns the user-facing message for code in lang
func Localize(code ErrorCode, lang Language) string {
	messages, ok := catalogue[code]
	if !ok {
		messages = catalogue[CodeUnknown]
	}
	if msg, ok := messages[lang]; ok {
		return msg
	}
	return messages[LanguageEnglish]
}
