package food

// nv 依固定順序建立營養素向量
// calories, protein, carbs, fat, fiber, sugar, sodium, iron, calcium, vitaminC
func nv(cal, protein, carbs, fat, fiber, sugar, sodium, iron, calcium, vitC float64) Nutrition {
	return Nutrition{
		Calories: cal,
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
		Fiber:    fiber,
		Sugar:    sugar,
		Sodium:   sodium,
		Iron:     iron,
		Calcium:  calcium,
		VitaminC: vitC,
	}
}

// 每單位（一片、一碗、一份）的營養資料，順序即部分比對的優先順序
var catalogData = []CatalogEntry{
	// 餅類
	{
		Key:         "chapati",
		DisplayName: "Chapati",
		Weight:      "40g",
		PerUnit:     nv(120, 3.1, 18, 3.7, 2.7, 0.4, 119, 0.9, 10, 0),
		Category:    "Bread",
		HealthScore: 7,
		Ingredients: []string{"whole wheat flour", "water", "salt", "ghee"},
		Tips:        "Whole wheat chapati is a good source of fiber.",
	},
	{
		Key:         "roti",
		DisplayName: "Roti",
		Weight:      "40g",
		PerUnit:     nv(110, 3, 17, 3, 2.5, 0.3, 110, 0.9, 9, 0),
		Category:    "Bread",
		HealthScore: 7,
		Ingredients: []string{"whole wheat flour", "water", "salt"},
		Tips:        "Pair roti with dal for complete protein.",
	},
	{
		Key:         "paratha",
		DisplayName: "Paratha",
		Weight:      "80g",
		PerUnit:     nv(180, 4.0, 26, 7, 3, 0.5, 230, 1.2, 20, 0),
		Category:    "Bread",
		HealthScore: 5,
		Ingredients: []string{"whole wheat flour", "ghee", "salt", "water"},
		Tips:        "Parathas are cooked with ghee; limit to one or two.",
	},
	{
		Key:         "naan",
		DisplayName: "Naan",
		Weight:      "90g",
		PerUnit:     nv(262, 8.7, 45, 5.1, 2, 3.2, 418, 2.9, 76, 0),
		Category:    "Bread",
		HealthScore: 5,
		Ingredients: []string{"maida", "yogurt", "yeast", "butter"},
		Tips:        "Naan is made with refined flour; whole wheat roti is lighter.",
	},
	{
		Key:         "puri",
		DisplayName: "Puri",
		Weight:      "25g",
		PerUnit:     nv(101, 2, 12, 5, 1, 0.2, 80, 0.6, 6, 0),
		Category:    "Bread",
		HealthScore: 4,
		Ingredients: []string{"whole wheat flour", "oil", "salt"},
		Tips:        "Puris are deep fried; enjoy occasionally.",
	},

	// 米飯
	{
		Key:         "jeera_rice",
		DisplayName: "Jeera Rice",
		Weight:      "150g",
		PerUnit:     nv(210, 4, 42, 3.5, 1.2, 0.3, 290, 1.1, 20, 0),
		Category:    "Rice",
		HealthScore: 6,
		Ingredients: []string{"basmati rice", "cumin seeds", "ghee", "salt"},
		Tips:        "Balance rice with a protein-rich dal or curry.",
	},
	{
		Key:         "steamed_rice",
		DisplayName: "Steamed Rice",
		Weight:      "150g",
		PerUnit:     nv(195, 4, 43, 0.4, 0.6, 0.1, 2, 0.3, 15, 0),
		Category:    "Rice",
		HealthScore: 6,
		Ingredients: []string{"rice", "water"},
		Tips:        "Brown rice adds more fiber than white rice.",
	},
	{
		Key:         "chicken_biryani",
		DisplayName: "Chicken Biryani",
		Weight:      "250g",
		PerUnit:     nv(400, 20, 45, 15, 2, 3, 750, 2.5, 60, 4),
		Category:    "Rice",
		HealthScore: 6,
		Ingredients: []string{"basmati rice", "chicken", "yogurt", "onion", "spices", "ghee"},
		Tips:        "Biryani is calorie dense; add a side of raita or salad.",
	},
	{
		Key:         "veg_biryani",
		DisplayName: "Veg Biryani",
		Weight:      "250g",
		PerUnit:     nv(320, 8, 52, 9, 4, 4, 620, 2, 50, 12),
		Category:    "Rice",
		HealthScore: 6,
		Ingredients: []string{"basmati rice", "mixed vegetables", "yogurt", "onion", "spices", "ghee"},
		Tips:        "Veg biryani pairs well with raita.",
	},
	{
		Key:         "poha",
		DisplayName: "Poha",
		Weight:      "150g",
		PerUnit:     nv(180, 3.5, 32, 4.5, 2, 2, 300, 2.7, 20, 7),
		Category:    "Breakfast",
		HealthScore: 7,
		Ingredients: []string{"flattened rice", "onion", "peanuts", "curry leaves", "oil"},
		Tips:        "Poha is a light breakfast; add peanuts for protein.",
	},

	// 豆類與咖哩
	{
		Key:         "dal_tadka",
		DisplayName: "Dal Tadka",
		Weight:      "150g",
		PerUnit:     nv(180, 9, 22, 6, 6, 2, 420, 2.5, 40, 5),
		Category:    "Curry",
		HealthScore: 8,
		Ingredients: []string{"toor dal", "onion", "tomato", "garlic", "cumin", "ghee"},
		Tips:        "Dal is a great plant protein source.",
	},
	{
		Key:         "dal_makhani",
		DisplayName: "Dal Makhani",
		Weight:      "150g",
		PerUnit:     nv(280, 10, 25, 16, 7, 3, 520, 3, 80, 3),
		Category:    "Curry",
		HealthScore: 6,
		Ingredients: []string{"black lentils", "kidney beans", "butter", "cream", "tomato"},
		Tips:        "Dal makhani is rich in cream; pair with plain roti.",
	},
	{
		Key:         "rajma",
		DisplayName: "Rajma",
		Weight:      "150g",
		PerUnit:     nv(210, 11, 30, 5, 9, 3, 480, 3.2, 60, 6),
		Category:    "Curry",
		HealthScore: 8,
		Ingredients: []string{"kidney beans", "onion", "tomato", "ginger", "oil"},
		Tips:        "Rajma is high in fiber and protein.",
	},
	{
		Key:         "chole",
		DisplayName: "Chole",
		Weight:      "150g",
		PerUnit:     nv(240, 10, 32, 8, 9, 5, 510, 3.6, 70, 8),
		Category:    "Curry",
		HealthScore: 7,
		Ingredients: []string{"chickpeas", "onion", "tomato", "spices", "oil"},
		Tips:        "Chickpeas provide lasting energy and fiber.",
	},
	{
		Key:         "sambar",
		DisplayName: "Sambar",
		Weight:      "150g",
		PerUnit:     nv(130, 6, 18, 4, 5, 4, 520, 2, 50, 12),
		Category:    "Curry",
		HealthScore: 8,
		Ingredients: []string{"toor dal", "tamarind", "mixed vegetables", "sambar powder"},
		Tips:        "Sambar adds vegetables and protein to the meal.",
	},
	{
		Key:         "paneer_butter_masala",
		DisplayName: "Paneer Butter Masala",
		Weight:      "150g",
		PerUnit:     nv(350, 14, 12, 27, 2, 6, 620, 1.2, 320, 8),
		Category:    "Curry",
		HealthScore: 5,
		Ingredients: []string{"paneer", "butter", "cream", "tomato", "cashew"},
		Tips:        "Rich in calcium but high in fat; keep the portion moderate.",
	},
	{
		Key:         "palak_paneer",
		DisplayName: "Palak Paneer",
		Weight:      "150g",
		PerUnit:     nv(260, 13, 10, 19, 4, 3, 540, 3.5, 300, 25),
		Category:    "Curry",
		HealthScore: 7,
		Ingredients: []string{"spinach", "paneer", "onion", "garlic", "cream"},
		Tips:        "Spinach adds iron and vitamin C.",
	},
	{
		Key:         "aloo_gobi",
		DisplayName: "Aloo Gobi",
		Weight:      "150g",
		PerUnit:     nv(150, 4, 18, 7, 5, 4, 380, 1.4, 40, 45),
		Category:    "Curry",
		HealthScore: 7,
		Ingredients: []string{"potato", "cauliflower", "onion", "turmeric", "oil"},
		Tips:        "Cauliflower is a good source of vitamin C.",
	},
	{
		Key:         "butter_chicken",
		DisplayName: "Butter Chicken",
		Weight:      "150g",
		PerUnit:     nv(340, 24, 9, 23, 1.5, 5, 700, 1.6, 60, 6),
		Category:    "Curry",
		HealthScore: 6,
		Ingredients: []string{"chicken", "butter", "cream", "tomato", "spices"},
		Tips:        "High in protein; the gravy carries most of the fat.",
	},
	{
		Key:         "egg_curry",
		DisplayName: "Egg Curry",
		Weight:      "150g",
		PerUnit:     nv(220, 13, 8, 15, 2, 4, 560, 2, 70, 6),
		Category:    "Curry",
		HealthScore: 7,
		Ingredients: []string{"egg", "onion", "tomato", "spices", "oil"},
		Tips:        "Eggs are a complete protein.",
	},

	// 南印度
	{
		Key:         "idli",
		DisplayName: "Idli",
		Weight:      "40g",
		PerUnit:     nv(58, 2, 12, 0.2, 0.8, 0.1, 130, 0.5, 8, 0),
		Category:    "South Indian",
		HealthScore: 8,
		Ingredients: []string{"rice", "urad dal", "salt"},
		Tips:        "Steamed idlis are light and easy to digest.",
	},
	{
		Key:         "dosa",
		DisplayName: "Dosa",
		Weight:      "100g",
		PerUnit:     nv(168, 4, 29, 4, 1.5, 0.5, 280, 1, 15, 0),
		Category:    "South Indian",
		HealthScore: 7,
		Ingredients: []string{"rice", "urad dal", "oil", "salt"},
		Tips:        "Pair dosa with sambar for extra protein.",
	},
	{
		Key:         "upma",
		DisplayName: "Upma",
		Weight:      "150g",
		PerUnit:     nv(190, 5, 30, 6, 2.5, 2, 420, 1.5, 25, 6),
		Category:    "Breakfast",
		HealthScore: 6,
		Ingredients: []string{"semolina", "onion", "mustard seeds", "curry leaves", "oil"},
		Tips:        "Add vegetables to upma for more fiber.",
	},

	// 點心
	{
		Key:         "samosa",
		DisplayName: "Samosa",
		Weight:      "60g",
		PerUnit:     nv(260, 4, 28, 15, 2.5, 1.5, 420, 1.5, 20, 6),
		Category:    "Snack",
		HealthScore: 3,
		Ingredients: []string{"maida", "potato", "peas", "oil", "spices"},
		Tips:        "Samosas are deep fried; one is plenty.",
	},
	{
		Key:         "pakora",
		DisplayName: "Pakora",
		Weight:      "50g",
		PerUnit:     nv(150, 4, 14, 9, 2, 1, 260, 1.2, 25, 4),
		Category:    "Snack",
		HealthScore: 4,
		Ingredients: []string{"gram flour", "onion", "oil", "spices"},
		Tips:        "Pakoras absorb a lot of oil; pat them dry.",
	},
	{
		Key:         "gulab_jamun",
		DisplayName: "Gulab Jamun",
		Weight:      "40g",
		PerUnit:     nv(150, 2, 22, 6, 0.2, 18, 40, 0.3, 40, 0),
		Category:    "Dessert",
		HealthScore: 2,
		Ingredients: []string{"milk solids", "maida", "sugar syrup", "ghee"},
		Tips:        "Very high in sugar; keep it to one piece.",
	},

	// 配菜
	{
		Key:         "raita",
		DisplayName: "Raita",
		Weight:      "100g",
		PerUnit:     nv(75, 3.5, 6, 3.5, 0.5, 5, 210, 0.2, 120, 3),
		Category:    "Side",
		HealthScore: 8,
		Ingredients: []string{"yogurt", "cucumber", "cumin", "salt"},
		Tips:        "Raita adds probiotics and cools spicy meals.",
	},
	{
		Key:         "curd",
		DisplayName: "Curd",
		Weight:      "100g",
		PerUnit:     nv(98, 3.5, 4.7, 4.3, 0, 4.7, 46, 0.1, 121, 0.5),
		Category:    "Side",
		HealthScore: 8,
		Ingredients: []string{"curd"},
		Tips:        "Curd supports digestion.",
	},
	{
		Key:         "green_chutney",
		DisplayName: "Green Chutney",
		Weight:      "30g",
		PerUnit:     nv(20, 0.8, 3, 0.5, 1.2, 1, 150, 0.6, 20, 15),
		Category:    "Condiment",
		HealthScore: 8,
		Ingredients: []string{"coriander", "mint", "green chili", "lemon"},
		Tips:        "Fresh herbs add flavor with almost no calories.",
	},
	{
		Key:         "mango_pickle",
		DisplayName: "Mango Pickle",
		Weight:      "15g",
		PerUnit:     nv(45, 0.3, 2, 4, 0.8, 0.5, 600, 0.3, 8, 3),
		Category:    "Condiment",
		HealthScore: 3,
		Ingredients: []string{"raw mango", "mustard oil", "salt", "spices"},
		Tips:        "Pickles are very high in sodium.",
	},

	// 速食
	{
		Key:         "burger",
		DisplayName: "Burger",
		Weight:      "150g",
		PerUnit:     nv(354, 17, 33, 17, 2, 6, 650, 3, 80, 2),
		Category:    "Fast Food",
		HealthScore: 4,
		Ingredients: []string{"bun", "chicken patty", "cheese", "lettuce", "sauce"},
		Tips:        "Add a salad instead of fries to balance the meal.",
	},
	{
		Key:         "pizza",
		DisplayName: "Pizza",
		Weight:      "107g",
		PerUnit:     nv(285, 12, 36, 10, 2.5, 3.8, 640, 2.5, 200, 1),
		Category:    "Fast Food",
		HealthScore: 4,
		Ingredients: []string{"pizza dough", "cheese", "tomato sauce"},
		Tips:        "Thin crust with vegetable toppings is lighter.",
	},
	{
		Key:         "french_fries",
		DisplayName: "French Fries",
		Weight:      "117g",
		PerUnit:     nv(365, 4, 48, 17, 4.4, 0.3, 246, 0.9, 21, 5),
		Category:    "Fast Food",
		HealthScore: 3,
		Ingredients: []string{"potato", "oil", "salt"},
		Tips:        "Fries are high in fat; share a portion.",
	},

	// 水果與蛋
	{
		Key:         "apple",
		DisplayName: "Apple",
		Weight:      "180g",
		PerUnit:     nv(95, 0.5, 25, 0.3, 4.4, 19, 2, 0.2, 11, 8.4),
		Category:    "Fruit",
		HealthScore: 9,
		Ingredients: []string{"apple"},
		Tips:        "Eat the skin for extra fiber.",
	},
	{
		Key:         "banana",
		DisplayName: "Banana",
		Weight:      "118g",
		PerUnit:     nv(105, 1.3, 27, 0.4, 3.1, 14, 1, 0.3, 6, 10.3),
		Category:    "Fruit",
		HealthScore: 8,
		Ingredients: []string{"banana"},
		Tips:        "Bananas are a quick source of potassium.",
	},
	{
		Key:         "boiled_egg",
		DisplayName: "Boiled Egg",
		Weight:      "50g",
		PerUnit:     nv(78, 6.3, 0.6, 5.3, 0, 0.6, 62, 0.6, 25, 0),
		Category:    "Protein",
		HealthScore: 8,
		Ingredients: []string{"egg"},
		Tips:        "Eggs are a complete protein.",
	},
}
