package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/review"
	"github.com/medlingo/transqa/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Human review queue operations",
}

var (
	reviewSubmitResultID string
	reviewSubmitPriority string
	reviewSubmitReason   string
	reviewSubmitCategory string
)

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a stored validation result for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		router, st, err := initRouter(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := st.GetResult(ctx, reviewSubmitResultID)
		if err != nil {
			return eris.Wrapf(err, "load result %s", reviewSubmitResultID)
		}

		id, err := router.Submit(ctx, result, review.SubmitOptions{
			Priority:        model.Priority(reviewSubmitPriority),
			Reason:          reviewSubmitReason,
			MedicalCategory: reviewSubmitCategory,
		})
		if err != nil {
			return eris.Wrap(err, "submit for review")
		}
		fmt.Println(id)
		return nil
	},
}

var reviewNextReviewer string

var reviewNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Fetch the next review request for a reviewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		router, st, err := initRouter(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		req, err := router.NextFor(ctx, reviewNextReviewer)
		if err != nil {
			return eris.Wrap(err, "fetch next review")
		}
		if req == nil {
			fmt.Println("no pending reviews")
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(req)
	},
}

var (
	decideRequestID string
	decideReviewer  string
	decideStatus    string
	decideCorrected string
	decideQuality   float64
	decideTimeSecs  int
)

var reviewDecideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record a review decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		router, st, err := initRouter(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		decision := model.ReviewDecision{
			RequestID:        decideRequestID,
			ReviewerID:       decideReviewer,
			Status:           model.DecisionStatus(decideStatus),
			CorrectedText:    decideCorrected,
			TimeSpentSeconds: decideTimeSecs,
			Confidence:       1.0,
		}
		if cmd.Flags().Changed("quality") {
			decision.QualityScore = &decideQuality
		}
		if err := router.SubmitDecision(ctx, decision); err != nil {
			return eris.Wrap(err, "submit decision")
		}
		fmt.Println("decision recorded")
		return nil
	},
}

var (
	reviewerName     string
	reviewerLangs    []string
	reviewerSpecs    []string
	reviewerDailyCap int
)

var reviewReviewerCmd = &cobra.Command{
	Use:   "reviewer-add",
	Short: "Register a reviewer profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		router, st, err := initRouter(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		profile := &model.ReviewerProfile{
			Name:            reviewerName,
			Languages:       reviewerLangs,
			Specializations: reviewerSpecs,
			Active:          true,
			MaxDailyReviews: reviewerDailyCap,
		}
		if err := router.UpsertReviewer(ctx, profile); err != nil {
			return err
		}
		fmt.Println(profile.ID)
		return nil
	},
}

// initRouter opens the store and loads persisted review state into a
// fresh router.
func initRouter(ctx context.Context) (*review.Router, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	router := review.NewRouter(review.FromConfig(cfg.Review), review.WithStore(st))
	if err := router.Hydrate(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return router, st, nil
}

func init() {
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitResultID, "result-id", "", "stored validation result id (required)")
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitPriority, "priority", "", "override derived priority: critical, high, medium, low, educational")
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitReason, "reason", "", "review reason")
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitCategory, "category", "", "medical specialization required")
	_ = reviewSubmitCmd.MarkFlagRequired("result-id")

	reviewNextCmd.Flags().StringVar(&reviewNextReviewer, "reviewer", "", "reviewer id (required)")
	_ = reviewNextCmd.MarkFlagRequired("reviewer")

	reviewDecideCmd.Flags().StringVar(&decideRequestID, "request", "", "review request id (required)")
	reviewDecideCmd.Flags().StringVar(&decideReviewer, "reviewer", "", "reviewer id (required)")
	reviewDecideCmd.Flags().StringVar(&decideStatus, "status", "approved", "decision: approved, rejected, corrected, escalated")
	reviewDecideCmd.Flags().StringVar(&decideCorrected, "corrected", "", "corrected translation text")
	reviewDecideCmd.Flags().Float64Var(&decideQuality, "quality", 0, "quality score in [0,1]")
	reviewDecideCmd.Flags().IntVar(&decideTimeSecs, "time-spent", 0, "review time in seconds")
	_ = reviewDecideCmd.MarkFlagRequired("request")
	_ = reviewDecideCmd.MarkFlagRequired("reviewer")

	reviewReviewerCmd.Flags().StringVar(&reviewerName, "name", "", "reviewer name (required)")
	reviewReviewerCmd.Flags().StringSliceVar(&reviewerLangs, "languages", nil, "qualified language codes (required)")
	reviewReviewerCmd.Flags().StringSliceVar(&reviewerSpecs, "specializations", nil, "medical specializations")
	reviewReviewerCmd.Flags().IntVar(&reviewerDailyCap, "daily-cap", 20, "maximum reviews per day")
	_ = reviewReviewerCmd.MarkFlagRequired("name")
	_ = reviewReviewerCmd.MarkFlagRequired("languages")

	reviewCmd.AddCommand(reviewSubmitCmd, reviewNextCmd, reviewDecideCmd, reviewReviewerCmd)
	rootCmd.AddCommand(reviewCmd)
}
