package cluster

// SamplePins returns the reference listings shown on the rental map when no
// other source is configured.
func SamplePins() PinSet {
	return PinSet{
		{
			ID: "p1", Coordinates: Coordinates{Top: 32, Left: 28}, Rent: 18000,
			Title: "2 BHK in Kothrud", Address: "Plot 14, Karve Road", Locality: "Kothrud", City: "Pune",
			Bedrooms: 2, Bathrooms: 2, AreaSqft: 950, Image: "/images/listings/p1.jpg",
			PropertyType: "apartment", Eligibility: []string{"EWS", "LIG"}, Verified: true,
		},
		{
			ID: "p2", Coordinates: Coordinates{Top: 38, Left: 32}, Rent: 22000,
			Title: "3 BHK near Paud Phata", Address: "Shivtirth Nagar, Paud Road", Locality: "Kothrud", City: "Pune",
			Bedrooms: 3, Bathrooms: 2, AreaSqft: 1250, Image: "/images/listings/p2.jpg",
			PropertyType: "apartment", Eligibility: []string{"MIG"}, Verified: true,
		},
		{
			ID: "p3", Coordinates: Coordinates{Top: 28, Left: 72}, Rent: 15000,
			Title: "1 BHK in Viman Nagar", Address: "Lane 5, Datta Mandir Chowk", Locality: "Viman Nagar", City: "Pune",
			Bedrooms: 1, Bathrooms: 1, AreaSqft: 600, Image: "/images/listings/p3.jpg",
			PropertyType: "apartment", Eligibility: []string{"EWS"}, Verified: false,
		},
		{
			ID: "p4", Coordinates: Coordinates{Top: 55, Left: 48}, Rent: 25000,
			Title: "Independent house, Shivajinagar", Address: "Model Colony", Locality: "Shivajinagar", City: "Pune",
			Bedrooms: 3, Bathrooms: 3, AreaSqft: 1600, Image: "/images/listings/p4.jpg",
			PropertyType: "house", Eligibility: []string{"MIG", "HIG"}, Verified: true,
		},
		{
			ID: "p5", Coordinates: Coordinates{Top: 62, Left: 65}, Rent: 12000,
			Title: "Studio in Hadapsar", Address: "Magarpatta Road", Locality: "Hadapsar", City: "Pune",
			Bedrooms: 1, Bathrooms: 1, AreaSqft: 450, Image: "/images/listings/p5.jpg",
			PropertyType: "studio", Eligibility: []string{"EWS", "LIG"}, Verified: true,
		},
		{
			ID: "p6", Coordinates: Coordinates{Top: 72, Left: 35}, Rent: 20000,
			Title: "2 BHK in Sinhagad Road", Address: "Anand Nagar", Locality: "Sinhagad Road", City: "Pune",
			Bedrooms: 2, Bathrooms: 2, AreaSqft: 1000, Image: "/images/listings/p6.jpg",
			PropertyType: "apartment", Eligibility: []string{"LIG", "MIG"}, Verified: false,
		},
		{
			ID: "p7", Coordinates: Coordinates{Top: 78, Left: 58}, Rent: 9500,
			Title: "Room in Kondhwa", Address: "NIBM Road", Locality: "Kondhwa", City: "Pune",
			Bedrooms: 1, Bathrooms: 1, AreaSqft: 350, Image: "/images/listings/p7.jpg",
			PropertyType: "room", Eligibility: []string{"EWS"}, Verified: true,
		},
		{
			ID: "p8", Coordinates: Coordinates{Top: 20, Left: 50}, Rent: 30000,
			Title: "3 BHK in Aundh", Address: "ITI Road", Locality: "Aundh", City: "Pune",
			Bedrooms: 3, Bathrooms: 3, AreaSqft: 1450, Image: "/images/listings/p8.jpg",
			PropertyType: "apartment", Eligibility: []string{"HIG"}, Verified: true,
		},
	}
}
