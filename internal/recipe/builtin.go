package recipe

import "github.com/hammamikhairi/mise/internal/domain"

// builtins returns the recipes every MemorySource starts with.
func builtins() []*domain.Recipe {
	return []*domain.Recipe{
		vegetableStirFry(),
		chickenAlfredo(),
	}
}

func chickenAlfredo() *domain.Recipe {
	return &domain.Recipe{
		ID:          "chicken-alfredo",
		Title:       "Chicken Alfredo",
		Description: "Spaghetti in a gruyere cream sauce with pan-seared chicken. The pasta and the chicken run side by side.",
		Tags:        []string{"italian", "pasta", "chicken", "comfort"},
		Ingredients: []string{
			"250 g spaghetti",
			"2 chicken breasts",
			"1 cup creme fraiche",
			"1 cup grated gruyere",
			"3 tbsp margarine",
			"4 cloves garlic",
			"1 tbsp olive oil",
			"salt and black pepper",
		},
		Steps: []domain.Step{
			{
				ID:              "ca-1",
				Text:            "Bring a large pot of well-salted water to a rolling boil.",
				DurationMinutes: 8,
				IsPassive:       true,
				NeedsTimer:      true,
				Ingredients:     []string{"salt"},
			},
			{
				ID:          "ca-2",
				Text:        "Season the chicken on both sides and pound it to an even thickness.",
				Ingredients: []string{"chicken breasts", "salt", "black pepper"},
			},
			{
				ID:              "ca-3",
				Text:            "Sear the chicken in olive oil, about 6 minutes a side, until it reaches 74°C inside. Rest it on a board.",
				DependsOn:       []string{"ca-2"},
				DurationMinutes: 12,
				NeedsTimer:      true,
				Ingredients:     []string{"olive oil"},
				Temperature:     "medium-high",
			},
			{
				ID:              "ca-4",
				Text:            "Cook the spaghetti until al dente. Keep a cup of the water before draining.",
				DependsOn:       []string{"ca-1"},
				DurationMinutes: 10,
				IsPassive:       true,
				NeedsTimer:      true,
				Ingredients:     []string{"spaghetti"},
			},
			{
				ID:              "ca-5",
				Text:            "In the chicken skillet, melt the margarine and cook the minced garlic until fragrant.",
				DependsOn:       []string{"ca-3"},
				DurationMinutes: 1,
				Ingredients:     []string{"margarine", "garlic"},
				Temperature:     "medium",
			},
			{
				ID:              "ca-6",
				Text:            "Stir in the creme fraiche and simmer until it coats a spoon.",
				DependsOn:       []string{"ca-5"},
				DurationMinutes: 3,
				NeedsTimer:      true,
				Ingredients:     []string{"creme fraiche"},
			},
			{
				ID:          "ca-7",
				Text:        "Off the heat, melt in the gruyere. Loosen with pasta water if it gets thick.",
				DependsOn:   []string{"ca-6", "ca-4"},
				Ingredients: []string{"gruyere"},
			},
			{
				ID:        "ca-8",
				Text:      "Slice the chicken, toss the pasta through the sauce, and serve straight away.",
				DependsOn: []string{"ca-7", "ca-3"},
			},
		},
		Version: 1,
	}
}

func vegetableStirFry() *domain.Recipe {
	return &domain.Recipe{
		ID:          "vegetable-stir-fry",
		Title:       "Vegetable Stir Fry",
		Description: "Crunchy vegetables over rice. Everything is cut before the wok goes on.",
		Tags:        []string{"asian", "vegetables", "quick", "vegan"},
		Ingredients: []string{
			"1 bell pepper",
			"2 cups broccoli florets",
			"1 carrot",
			"1 cup snap peas",
			"3 cloves garlic",
			"1 tbsp grated ginger",
			"2 tbsp soy sauce",
			"1 tbsp sesame oil",
			"2 tbsp vegetable oil",
			"1 tsp cornstarch",
			"1 cup rice",
		},
		Steps: []domain.Step{
			{
				ID:              "vsf-1",
				Text:            "Start the rice.",
				DurationMinutes: 18,
				IsPassive:       true,
				NeedsTimer:      true,
				Ingredients:     []string{"rice"},
			},
			{
				ID:          "vsf-2",
				Text:        "Cut the pepper into strips, the broccoli into small florets and the carrot into matchsticks. Trim the peas, mince the garlic, grate the ginger.",
				Ingredients: []string{"bell pepper", "broccoli florets", "carrot", "snap peas", "garlic", "ginger"},
			},
			{
				ID:          "vsf-3",
				Text:        "Whisk the soy sauce, sesame oil and cornstarch with 2 tbsp water.",
				Ingredients: []string{"soy sauce", "sesame oil", "cornstarch"},
			},
			{
				ID:          "vsf-4",
				Text:        "Heat the wok until it just smokes, then swirl in the vegetable oil.",
				Ingredients: []string{"vegetable oil"},
				Temperature: "high",
			},
			{
				ID:              "vsf-5",
				Text:            "Stir-fry broccoli and carrot for 2 minutes, then the pepper and peas for 2 more. Let them char.",
				DependsOn:       []string{"vsf-2", "vsf-4"},
				DurationMinutes: 4,
				NeedsTimer:      true,
				Temperature:     "high",
			},
			{
				ID:              "vsf-6",
				Text:            "Clear the middle of the wok and fry the garlic and ginger until fragrant, then toss everything together.",
				DependsOn:       []string{"vsf-5"},
				DurationMinutes: 0.5,
			},
			{
				ID:              "vsf-7",
				Text:            "Pour in the sauce and toss until glossy.",
				DependsOn:       []string{"vsf-6", "vsf-3"},
				DurationMinutes: 0.5,
			},
			{
				ID:        "vsf-8",
				Text:      "Serve over the rice.",
				DependsOn: []string{"vsf-7", "vsf-1"},
			},
		},
		Version: 1,
	}
}
