package validations

import (
	"context"

	domainCredential "github.com/AzielCF/az-post/domains/credential"
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	pkgError "github.com/AzielCF/az-post/pkg/error"
	"github.com/AzielCF/az-post/pkg/timeutils"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateUpdateRule enforces the recurrence configuration contract: the day
// field matching the frequency is mandatory, the timezone must resolve, and
// nothing is silently defaulted.
func ValidateUpdateRule(ctx context.Context, request domainRecurrence.UpdateRuleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Frequency, validation.Required, validation.In(
			timeutils.FrequencyDaily, timeutils.FrequencyWeekly, timeutils.FrequencyMonthly,
		)),
		validation.Field(&request.TimeOfDay, validation.Required),
		validation.Field(&request.Timezone, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if _, _, _, err := timeutils.ParseTimeOfDay(request.TimeOfDay); err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if _, err := timeutils.NormalizeTimezone(request.Timezone); err != nil {
		return pkgError.ValidationError("timezone: must be a valid IANA zone name.")
	}

	switch request.Frequency {
	case timeutils.FrequencyWeekly:
		if request.DayOfWeek == nil {
			return pkgError.ValidationError("day_of_week: required for weekly frequency.")
		}
		if *request.DayOfWeek < 0 || *request.DayOfWeek > 6 {
			return pkgError.ValidationError("day_of_week: must be between 0 (Sunday) and 6 (Saturday).")
		}
	case timeutils.FrequencyMonthly:
		if request.DayOfMonth == nil {
			return pkgError.ValidationError("day_of_month: required for monthly frequency.")
		}
		if *request.DayOfMonth < 1 || *request.DayOfMonth > 31 {
			return pkgError.ValidationError("day_of_month: must be between 1 and 31.")
		}
	}

	return nil
}

// ValidateUpsertCredential checks the stored token shape before persisting.
func ValidateUpsertCredential(ctx context.Context, request domainCredential.UpsertCredentialRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.Platform, validation.Required),
		validation.Field(&request.AccessToken, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if !request.Platform.Valid() {
		return pkgError.ValidationError("platform: must be one of linkedin, facebook, instagram.")
	}
	return nil
}
