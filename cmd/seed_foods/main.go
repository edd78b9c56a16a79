package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pageza/macrolog/backend/config"
	"github.com/pageza/macrolog/backend/internal/database"
	"github.com/pageza/macrolog/backend/internal/logging"
	"github.com/pageza/macrolog/backend/internal/service"
)

// starterFoods is a small catalog of common foods, per typical serving.
const starterFoods = `[
	{"name": "Egg", "calories": 72, "protein": 6.3, "carbs": 0.4, "fat": 4.8, "tags": ["protein", "breakfast"]},
	{"name": "Rolled Oats", "calories": 150, "protein": 5, "carbs": 27, "fat": 3, "tags": ["grain", "breakfast"]},
	{"name": "Banana", "calories": 105, "protein": 1.3, "carbs": 27, "fat": 0.4, "tags": ["fruit"]},
	{"name": "Greek Yogurt", "calories": 100, "protein": 17, "carbs": 6, "fat": 0.7, "tags": ["dairy", "protein"]},
	{"name": "Chicken Breast", "calories": 165, "protein": 31, "carbs": 0, "fat": 3.6, "tags": ["protein"]},
	{"name": "White Rice", "calories": 205, "protein": 4.3, "carbs": 45, "fat": 0.4, "tags": ["grain"]},
	{"name": "Broccoli", "calories": 55, "protein": 3.7, "carbs": 11, "fat": 0.6, "tags": ["vegetable"]},
	{"name": "Salmon", "calories": 208, "protein": 20, "carbs": 0, "fat": 13, "tags": ["protein", "fish"]},
	{"name": "Almonds", "calories": 164, "protein": 6, "carbs": 6, "fat": 14, "tags": ["snack", "nuts"]},
	{"name": "Whole Wheat Bread", "calories": 80, "protein": 4, "carbs": 14, "fat": 1, "tags": ["grain"]},
	{"name": "Apple", "calories": 95, "protein": 0.5, "carbs": 25, "fat": 0.3, "tags": ["fruit", "snack"]},
	{"name": "Peanut Butter", "calories": 190, "protein": 7, "carbs": 7, "fat": 16, "tags": ["spread"]}
]`

func main() {
	userFlag := flag.String("user", "", "User to seed (defaults to DEV_USER_ID)")
	file := flag.String("file", "", "JSON array of foods to seed instead of the starter catalog")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg)

	userID := *userFlag
	if userID == "" {
		userID = cfg.DevUserID
	}

	data := []byte(starterFoods)
	if *file != "" {
		if data, err = os.ReadFile(*file); err != nil {
			log.WithError(err).Fatal("failed to read seed file")
		}
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).Fatal("failed to parse seed foods")
	}

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	items := service.NormalizeItems(raw)
	foods, err := service.NewFoodService(db, log).UpsertFoods(context.Background(), userID, items)
	if err != nil {
		log.WithError(err).Fatal("failed to seed foods")
	}
	log.WithFields(logrus.Fields{"user_id": userID, "foods": len(foods), "skipped": len(raw) - len(items)}).Info("seeded catalog")
}
