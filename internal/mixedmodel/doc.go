// Package mixedmodel fits linear mixed-effects models with a random
// subject intercept to the study's repeated-measures outcomes.
//
// Every model has the same fixed-effect structure,
//
//	outcome ~ time + group + time:group + covariates,
//
// with a per-subject random intercept absorbing the within-subject
// correlation between the two assessment occasions. Estimation is by
// maximum likelihood, not REML, so models with different fixed effects
// remain comparable on their likelihoods.
//
// The likelihood is profiled down to one dimension: at a fixed ratio
// theta = sigma2_subject / sigma2_resid the GLS fixed effects and the
// residual variance have closed forms (the per-subject covariance inverts
// analytically through the Woodbury identity), and the remaining deviance
// in theta is minimized by grid bracketing plus golden-section refinement.
//
// Inference is Wald throughout: z statistics and normal-quantile confidence
// intervals from the GLS covariance of the fixed effects, and a reference
// grid of covariate-adjusted marginal means with Post-minus-Pre contrasts
// within each protocol arm.
package mixedmodel
