package questions

import "geoquiz/internal/session"

var defaultQuestions = []session.Question{
	{ID: 1, Text: "Where is the Eiffel Tower located?", Latitude: 48.8584, Longitude: 2.2945, Hint: "This iconic iron lattice tower is located in the capital of France", Image: "https://images.unsplash.com/photo-1431274172761-fca41d930114?auto=format&fit=crop&q=80"},
	{ID: 2, Text: "Find the Great Pyramid of Giza", Latitude: 29.9792, Longitude: 31.1342, Hint: "This ancient wonder is located in Egypt", Image: "https://images.unsplash.com/photo-1503177119275-0aa32b3a9368?auto=format&fit=crop&q=80"},
	{ID: 3, Text: "Locate Machu Picchu", Latitude: -13.1631, Longitude: -72.5450, Hint: "This Incan citadel sits high in the Andes Mountains", Image: "https://images.unsplash.com/photo-1526392060635-9d6019884377?auto=format&fit=crop&q=80"},
	{ID: 4, Text: "Find the Taj Mahal", Latitude: 27.1751, Longitude: 78.0421, Hint: "This ivory-white marble mausoleum is located in Agra", Image: "https://images.unsplash.com/photo-1564507592333-c60657eea523?auto=format&fit=crop&q=80"},
	{ID: 5, Text: "Locate the Statue of Liberty", Latitude: 40.6892, Longitude: -74.0445, Hint: "This copper statue stands on Liberty Island in New York Harbor", Image: "https://images.unsplash.com/photo-1605130284535-11dd9eedc58a?auto=format&fit=crop&q=80"},
	{ID: 6, Text: "Find the Sydney Opera House", Latitude: -33.8568, Longitude: 151.2153, Hint: "This performing arts center is located in Sydney Harbour", Image: "https://images.unsplash.com/photo-1624138784614-87fd1b6528f8?auto=format&fit=crop&q=80"},
	{ID: 7, Text: "Where is the Colosseum?", Latitude: 41.8902, Longitude: 12.4922, Hint: "This ancient amphitheater is located in Rome", Image: "https://images.unsplash.com/photo-1552832230-c0197dd311b5?auto=format&fit=crop&q=80"},
	{ID: 8, Text: "Locate Christ the Redeemer", Latitude: -22.9519, Longitude: -43.2105, Hint: "This Art Deco statue overlooks Rio de Janeiro", Image: "https://images.unsplash.com/photo-1593995863951-57c27e518295?auto=format&fit=crop&q=80"},
	{ID: 9, Text: "Find Petra", Latitude: 30.3285, Longitude: 35.4444, Hint: "This ancient city is carved into rose-colored rock faces", Image: "https://images.unsplash.com/photo-1579606032821-4e6161c81bd3?auto=format&fit=crop&q=80"},
	{ID: 10, Text: "Where is Mount Fuji?", Latitude: 35.3606, Longitude: 138.7278, Hint: "This iconic volcano is Japan's highest peak", Image: "https://images.unsplash.com/photo-1570459027562-4a916cc6113f?auto=format&fit=crop&q=80"},
	{ID: 11, Text: "Find the Acropolis", Latitude: 37.9715, Longitude: 23.7267, Hint: "This ancient citadel sits above Athens", Image: "https://images.unsplash.com/photo-1555993539-1732b0258235?auto=format&fit=crop&q=80"},
	{ID: 12, Text: "Locate Angkor Wat", Latitude: 13.4125, Longitude: 103.8670, Hint: "This temple complex is Cambodia's most famous landmark", Image: "https://images.unsplash.com/photo-1600820641817-86ac1b0c2c1c?auto=format&fit=crop&q=80"},
	{ID: 13, Text: "Where is the Golden Gate Bridge?", Latitude: 37.8199, Longitude: -122.4783, Hint: "This suspension bridge is San Francisco's iconic landmark", Image: "https://images.unsplash.com/photo-1501594907352-04cda38ebc29?auto=format&fit=crop&q=80"},
	{ID: 14, Text: "Locate Stonehenge", Latitude: 51.1789, Longitude: -1.8262, Hint: "This prehistoric monument stands on Salisbury Plain", Image: "https://images.unsplash.com/photo-1599833975787-5c143f373c30?auto=format&fit=crop&q=80"},
	{ID: 15, Text: "Locate the Moai Statues", Latitude: -27.1127, Longitude: -109.3497, Hint: "These monolithic human figures are on Easter Island", Image: "https://images.unsplash.com/photo-1597240890284-c93f86e4e3d9?auto=format&fit=crop&q=80"},
}

// Default returns the built-in question bank.
func Default() *Bank {
	b, err := NewBank(defaultQuestions)
	if err != nil {
		panic(err)
	}
	return b
}
